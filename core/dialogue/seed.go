package dialogue

import (
	"fmt"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
)

// SceneSeed là một scene trong kịch bản đã bóc tách gửi lên khi seed
// collection dialogue của episode.
type SceneSeed struct {
	SceneNumber int
	Lines       []LineSeed
}

// LineSeed là một dòng thoại trong scene seed.
type LineSeed struct {
	Line      int
	Character string
	Original  string
	TimeIn    string
	TimeOut   string
}

// BuildScenes sinh các scene documents ban đầu của một episode từ kịch
// bản đã bóc tách. Dialogue number được cấp từ (projectNumber,
// episodeNumber, scene, line) - client không bao giờ tự đặt số. Mọi
// dialogue bắt đầu ở trạng thái pending.
func BuildScenes(projectNumber, episodeNumber int, seeds []SceneSeed) ([]models.SceneDoc, error) {
	if projectNumber < 1 || episodeNumber < 1 || episodeNumber > 99 {
		return nil, common.NewError(
			common.ErrCodeValidationInput,
			fmt.Sprintf("Cặp project/episode (%d, %d) không cấp được dialogue number", projectNumber, episodeNumber),
			common.StatusBadRequest,
			nil,
		)
	}
	if len(seeds) == 0 {
		return nil, common.NewError(
			common.ErrCodeValidationInput,
			"Kịch bản seed không có scene nào",
			common.StatusBadRequest,
			nil,
		)
	}

	seenScenes := map[int]bool{}
	docs := make([]models.SceneDoc, 0, len(seeds))
	for _, seed := range seeds {
		if seed.SceneNumber < 1 || seed.SceneNumber > 99 {
			return nil, common.NewError(
				common.ErrCodeValidationInput,
				fmt.Sprintf("Số scene %d nằm ngoài dải hợp lệ 1..99", seed.SceneNumber),
				common.StatusBadRequest,
				nil,
			)
		}
		if seenScenes[seed.SceneNumber] {
			return nil, common.NewError(
				common.ErrCodeValidationInput,
				fmt.Sprintf("Scene %d xuất hiện nhiều lần trong kịch bản seed", seed.SceneNumber),
				common.StatusBadRequest,
				nil,
			)
		}
		seenScenes[seed.SceneNumber] = true

		seenLines := map[int]bool{}
		dialogues := make([]models.Dialogue, 0, len(seed.Lines))
		for _, line := range seed.Lines {
			if line.Line < 1 || line.Line > 999 {
				return nil, common.NewError(
					common.ErrCodeValidationInput,
					fmt.Sprintf("Số line %d của scene %d nằm ngoài dải hợp lệ 1..999", line.Line, seed.SceneNumber),
					common.StatusBadRequest,
					nil,
				)
			}
			if seenLines[line.Line] {
				return nil, common.NewError(
					common.ErrCodeValidationInput,
					fmt.Sprintf("Line %d xuất hiện nhiều lần trong scene %d", line.Line, seed.SceneNumber),
					common.StatusBadRequest,
					nil,
				)
			}
			seenLines[line.Line] = true

			number := Number{
				Project: projectNumber,
				Episode: episodeNumber,
				Scene:   seed.SceneNumber,
				Line:    line.Line,
			}
			dialogues = append(dialogues, models.Dialogue{
				DialogueNumber: number.String(),
				Character:      line.Character,
				Original:       line.Original,
				TimeIn:         line.TimeIn,
				TimeOut:        line.TimeOut,
				Status:         models.DialogueStatusPending,
			})
		}

		docs = append(docs, models.SceneDoc{
			SceneNumber: seed.SceneNumber,
			Dialogues:   dialogues,
		})
	}
	return docs, nil
}
