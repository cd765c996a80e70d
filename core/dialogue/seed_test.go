package dialogue

import (
	"testing"

	models "dub_studio/core/api/models/mongodb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScenes(t *testing.T) {
	t.Run("Dialogue number được cấp từ vị trí, không do client đặt", func(t *testing.T) {
		docs, err := BuildScenes(3, 1, []SceneSeed{
			{
				SceneNumber: 2,
				Lines: []LineSeed{
					{Line: 5, Character: "Nam", Original: "Xin chào", TimeIn: "00:01:02", TimeOut: "00:01:04"},
					{Line: 6, Character: "Lan", Original: "Chào anh"},
				},
			},
		})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Len(t, docs[0].Dialogues, 2)

		assert.Equal(t, 2, docs[0].SceneNumber)
		assert.Equal(t, "3.01.02.005", docs[0].Dialogues[0].DialogueNumber)
		assert.Equal(t, "3.01.02.006", docs[0].Dialogues[1].DialogueNumber)

		// Mọi dialogue khởi đầu ở pending để đi đúng vòng review
		for _, d := range docs[0].Dialogues {
			assert.Equal(t, models.DialogueStatusPending, d.Status)
		}
		assert.Equal(t, "Nam", docs[0].Dialogues[0].Character)
		assert.Equal(t, "00:01:02", docs[0].Dialogues[0].TimeIn)
	})

	t.Run("Number sinh ra parse lại được bằng codec", func(t *testing.T) {
		docs, err := BuildScenes(12, 34, []SceneSeed{
			{SceneNumber: 56, Lines: []LineSeed{{Line: 789, Original: "x"}}},
		})
		require.NoError(t, err)

		parsed, err := ParseNumber(docs[0].Dialogues[0].DialogueNumber)
		require.NoError(t, err)
		assert.Equal(t, Number{Project: 12, Episode: 34, Scene: 56, Line: 789}, parsed)
	})

	t.Run("Trùng line trong cùng scene bị từ chối", func(t *testing.T) {
		_, err := BuildScenes(1, 1, []SceneSeed{
			{SceneNumber: 1, Lines: []LineSeed{{Line: 1}, {Line: 1}}},
		})
		assert.Error(t, err)
	})

	t.Run("Trùng scene trong cùng kịch bản bị từ chối", func(t *testing.T) {
		_, err := BuildScenes(1, 1, []SceneSeed{
			{SceneNumber: 1, Lines: []LineSeed{{Line: 1}}},
			{SceneNumber: 1, Lines: []LineSeed{{Line: 2}}},
		})
		assert.Error(t, err)
	})

	t.Run("Số ngoài dải của codec bị từ chối", func(t *testing.T) {
		_, err := BuildScenes(1, 100, []SceneSeed{{SceneNumber: 1}})
		assert.Error(t, err, "episode quá 2 chữ số")
		_, err = BuildScenes(1, 1, []SceneSeed{{SceneNumber: 100}})
		assert.Error(t, err, "scene quá 2 chữ số")
		_, err = BuildScenes(1, 1, []SceneSeed{{SceneNumber: 1, Lines: []LineSeed{{Line: 1000}}}})
		assert.Error(t, err, "line quá 3 chữ số")
		_, err = BuildScenes(0, 1, []SceneSeed{{SceneNumber: 1}})
		assert.Error(t, err, "project number phải >= 1")
	})

	t.Run("Kịch bản rỗng bị từ chối", func(t *testing.T) {
		_, err := BuildScenes(1, 1, nil)
		assert.Error(t, err)
	})
}
