// Package pipeline điều phối 5 bước xử lý của một Episode:
// 1 clean audio, 2 prepare clips, 3 validate/finalize, 4 translate,
// 5 character & voice assignment. Thứ tự bước được đảm bảo bằng
// precondition check trên state machine, không dùng lock.
package pipeline

import (
	"fmt"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
)

// stepTransitions: bảng chuyển trạng thái hợp lệ của một step.
// completed -> processing được phép vì step phải re-entrant (chạy lại
// với cùng input sau partial failure là an toàn).
var stepTransitions = map[string][]string{
	models.StepStatusPending:    {models.StepStatusProcessing},
	models.StepStatusProcessing: {models.StepStatusCompleted, models.StepStatusError},
	models.StepStatusCompleted:  {models.StepStatusProcessing},
	models.StepStatusError:      {models.StepStatusProcessing},
}

// CheckStepTransition kiểm tra chuyển trạng thái step có hợp lệ không.
// Trạng thái rỗng được coi là pending (step chưa từng chạy).
func CheckStepTransition(current string, next string) error {
	if current == "" {
		current = models.StepStatusPending
	}
	for _, s := range stepTransitions[current] {
		if s == next {
			return nil
		}
	}
	return common.NewError(
		common.ErrCodeBusinessState,
		fmt.Sprintf("Step không thể chuyển từ '%s' sang '%s'", current, next),
		common.StatusBadRequest,
		nil,
	)
}

// CheckPrecondition kiểm tra điều kiện tiên quyết để chạy step n:
// - step phải nằm trong dải 1..5
// - step 1 yêu cầu Episode đã có video và pipeline chưa tiến qua step 1
//   (episode vừa upload hoặc vừa reset chu kỳ - tức status uploaded, hoặc
//   error của chính step 1); episode lỗi ở step sau không được quay về
//   step 1 khi chưa reset chu kỳ
// - step n > 1 yêu cầu step n-1 đã completed
func CheckPrecondition(e *models.Episode, step int) error {
	if step < 1 || step > models.PipelineStepCount {
		return common.NewError(
			common.ErrCodeValidationInput,
			fmt.Sprintf("Step %d nằm ngoài dải hợp lệ 1..%d", step, models.PipelineStepCount),
			common.StatusBadRequest,
			nil,
		)
	}

	if step == 1 {
		if e.VideoKey == "" {
			return common.NewError(
				common.ErrCodeBusinessPrecondition,
				"Episode chưa có video, không thể chạy step 1",
				common.StatusPreconditionFailed,
				nil,
			)
		}
		if e.Step > 1 {
			return common.NewError(
				common.ErrCodeBusinessPrecondition,
				fmt.Sprintf("Episode đang ở step %d, chạy lại step 1 yêu cầu reset chu kỳ (step 3 với resetCycle)", e.Step),
				common.StatusPreconditionFailed,
				nil,
			)
		}
		return nil
	}

	prev := e.StepStateAt(step - 1)
	if prev == nil || prev.Status != models.StepStatusCompleted {
		return common.NewError(
			common.ErrCodeBusinessPrecondition,
			fmt.Sprintf("Step %d chưa completed, không thể chạy step %d", step-1, step),
			common.StatusPreconditionFailed,
			nil,
		)
	}
	return nil
}
