// Package queue là substrate chạy bất đồng bộ cho các step dài của
// pipeline (ví dụ clean audio): enqueue/claim/status trên collection
// dub_studio_jobs, retry có backoff lũy thừa và lan truyền thất bại
// cuối cùng về step sở hữu.
package queue

import (
	"context"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/api/services"
	"dub_studio/core/utility"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Queue xử lý việc enqueue và tra cứu trạng thái job.
type Queue struct {
	jobService  *services.JobService
	maxAttempts int
}

// NewQueue tạo mới Queue. maxAttempts <= 0 dùng mặc định 3.
func NewQueue(maxAttempts int) (*Queue, error) {
	jobService, err := services.NewJobService()
	if err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Queue{
		jobService:  jobService,
		maxAttempts: maxAttempts,
	}, nil
}

// JobService trả về service bên dưới, dùng cho worker retention.
func (q *Queue) JobService() *services.JobService {
	return q.jobService
}

// Enqueue thêm một job vào queue và trả về jobId (UUID) cho caller poll.
func (q *Queue) Enqueue(ctx context.Context, projectID primitive.ObjectID, episodeID primitive.ObjectID, step int, jobType string, payload map[string]interface{}) (string, error) {
	job := models.Job{
		JobID:       uuid.New().String(),
		ProjectID:   projectID,
		EpisodeID:   episodeID,
		Step:        step,
		Type:        jobType,
		Payload:     payload,
		Status:      models.JobStatusQueued,
		Attempt:     0,
		MaxAttempts: q.maxAttempts,
	}

	created, err := q.jobService.InsertOne(ctx, job)
	if err != nil {
		return "", err
	}
	return created.JobID, nil
}

// Status trả về job theo jobId để caller kiểm tra tiến độ.
func (q *Queue) Status(ctx context.Context, jobID string) (models.Job, error) {
	return q.jobService.FindOneByJobID(ctx, jobID)
}

// claimNext giành quyền xử lý job sẵn sàng tiếp theo cho một worker.
func (q *Queue) claimNext(ctx context.Context, staleMinutes int) (models.Job, error) {
	return q.jobService.ClaimNext(ctx, staleMinutes)
}

// markCompleted đánh dấu job hoàn thành.
func (q *Queue) markCompleted(ctx context.Context, job *models.Job) error {
	now := utility.CurrentTimeInMilli()
	updateData := services.UpdateData{
		Set: map[string]interface{}{
			"status":     models.JobStatusCompleted,
			"finishedAt": now,
			"updatedAt":  now,
		},
	}
	_, err := q.jobService.UpdateById(ctx, job.ID, updateData)
	return err
}

// scheduleRetry trả job về queued và đặt thời điểm chạy lại.
func (q *Queue) scheduleRetry(ctx context.Context, job *models.Job, nextRetryAt int64, lastError string) error {
	updateData := services.UpdateData{
		Set: map[string]interface{}{
			"status":      models.JobStatusQueued,
			"nextRetryAt": nextRetryAt,
			"lastError":   lastError,
			"updatedAt":   utility.CurrentTimeInMilli(),
		},
	}
	_, err := q.jobService.UpdateOne(ctx, bson.M{"_id": job.ID}, updateData, nil)
	return err
}

// markFailed đánh dấu job failed vĩnh viễn.
func (q *Queue) markFailed(ctx context.Context, job *models.Job, message string) error {
	now := utility.CurrentTimeInMilli()
	updateData := services.UpdateData{
		Set: map[string]interface{}{
			"status":     models.JobStatusFailed,
			"lastError":  message,
			"finishedAt": now,
			"updatedAt":  now,
		},
	}
	_, err := q.jobService.UpdateOne(ctx, bson.M{"_id": job.ID}, updateData, nil)
	return err
}
