// Package handler chứa các handler xử lý request HTTP cho job queue
package handler

import (
	"dub_studio/core/api/services"
	"dub_studio/core/common"

	"github.com/gofiber/fiber/v3"
)

// JobHandler xử lý các request tra cứu trạng thái job bất đồng bộ.
// Client nhận jobId khi chạy step 1 rồi poll endpoint này đến khi job
// chuyển sang completed hoặc failed.
type JobHandler struct {
	jobService *services.JobService
}

// NewJobHandler tạo một instance mới của JobHandler
func NewJobHandler(jobService *services.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// HandleGetJob trả về trạng thái hiện tại của một job theo jobId (UUID)
func (h *JobHandler) HandleGetJob(c fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		WriteResponse(c, nil, common.NewError(
			common.ErrCodeValidationInput,
			"Param jobId không được để trống",
			common.StatusBadRequest,
			nil,
		))
		return nil
	}

	job, err := h.jobService.FindOneByJobID(c.Context(), jobID)
	WriteResponse(c, job, err)
	return nil
}
