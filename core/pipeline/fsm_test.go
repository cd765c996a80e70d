package pipeline

import (
	"testing"

	models "dub_studio/core/api/models/mongodb"

	"github.com/stretchr/testify/assert"
)

func TestCheckStepTransition(t *testing.T) {
	t.Run("Trạng thái rỗng được coi là pending", func(t *testing.T) {
		assert.NoError(t, CheckStepTransition("", models.StepStatusProcessing))
	})

	t.Run("Các transition hợp lệ", func(t *testing.T) {
		assert.NoError(t, CheckStepTransition(models.StepStatusPending, models.StepStatusProcessing))
		assert.NoError(t, CheckStepTransition(models.StepStatusProcessing, models.StepStatusCompleted))
		assert.NoError(t, CheckStepTransition(models.StepStatusProcessing, models.StepStatusError))
		assert.NoError(t, CheckStepTransition(models.StepStatusError, models.StepStatusProcessing))
	})

	t.Run("Completed được chạy lại (re-entrant)", func(t *testing.T) {
		assert.NoError(t, CheckStepTransition(models.StepStatusCompleted, models.StepStatusProcessing))
	})

	t.Run("Các transition không hợp lệ", func(t *testing.T) {
		// Không được nhảy cóc qua processing
		assert.Error(t, CheckStepTransition(models.StepStatusPending, models.StepStatusCompleted))
		assert.Error(t, CheckStepTransition(models.StepStatusPending, models.StepStatusError))
		assert.Error(t, CheckStepTransition(models.StepStatusCompleted, models.StepStatusError))
	})
}

func TestCheckPrecondition(t *testing.T) {
	episodeWithVideo := func() *models.Episode {
		return &models.Episode{VideoKey: "videos/phim_hay/Ep_01.mp4"}
	}

	t.Run("Step ngoài dải 1..5 bị từ chối", func(t *testing.T) {
		e := episodeWithVideo()
		assert.Error(t, CheckPrecondition(e, 0))
		assert.Error(t, CheckPrecondition(e, 6))
		assert.Error(t, CheckPrecondition(e, -1))
	})

	t.Run("Step 1 yêu cầu episode đã có video", func(t *testing.T) {
		assert.Error(t, CheckPrecondition(&models.Episode{}, 1))
		assert.NoError(t, CheckPrecondition(episodeWithVideo(), 1))
	})

	t.Run("Episode đã tiến qua step 1 không được chạy lại step 1", func(t *testing.T) {
		// Lỗi ở step sau không mở lại step 1 - phải reset chu kỳ trước
		e := episodeWithVideo()
		e.Step = 3
		e.Status = models.EpisodeStatusError
		e.Step1 = models.StepState{Status: models.StepStatusCompleted}
		e.Step2 = models.StepState{Status: models.StepStatusCompleted}
		assert.Error(t, CheckPrecondition(e, 1))

		// Sau reset chu kỳ (step counter về 1, status uploaded) thì chạy được
		e.Step = 1
		e.Status = models.EpisodeStatusUploaded
		assert.NoError(t, CheckPrecondition(e, 1))
	})

	t.Run("Step n yêu cầu step n-1 đã completed", func(t *testing.T) {
		e := episodeWithVideo()
		assert.Error(t, CheckPrecondition(e, 2), "step 1 chưa chạy thì không được chạy step 2")

		e.Step1 = models.StepState{Status: models.StepStatusProcessing}
		assert.Error(t, CheckPrecondition(e, 2), "step 1 đang chạy cũng chưa đủ điều kiện")

		e.Step1 = models.StepState{Status: models.StepStatusCompleted}
		assert.NoError(t, CheckPrecondition(e, 2))
	})

	t.Run("Không được nhảy cóc step", func(t *testing.T) {
		e := episodeWithVideo()
		e.Step1 = models.StepState{Status: models.StepStatusCompleted}
		// Step 2 chưa completed nên step 3 bị chặn dù step 1 đã xong
		assert.Error(t, CheckPrecondition(e, 3))

		e.Step2 = models.StepState{Status: models.StepStatusCompleted}
		assert.NoError(t, CheckPrecondition(e, 3))
	})

	t.Run("Step 5 cần đủ chuỗi 4 step trước", func(t *testing.T) {
		e := episodeWithVideo()
		for n := 1; n <= 4; n++ {
			e.StepStateAt(n).Status = models.StepStatusCompleted
		}
		assert.NoError(t, CheckPrecondition(e, 5))
	})
}
