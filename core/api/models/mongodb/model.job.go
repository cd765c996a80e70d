package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái của Job trong queue
const (
	JobStatusQueued    = "queued"
	JobStatusActive    = "active"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Các loại job
const (
	JobTypeCleanAudio = "clean_audio" // Step 1: tách và làm sạch audio
)

// Job - đơn vị công việc bất đồng bộ trong queue, lưu trong collection
// dub_studio_jobs của database điều khiển. Job thất bại hết số lần thử sẽ
// được đánh dấu failed và step sở hữu trên Episode được set error - không
// bao giờ bị bỏ qua trong im lặng.
type Job struct {
	ID    primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	JobID string             `json:"jobId" bson:"jobId" index:"unique"` // UUID, dùng trong API status

	ProjectID primitive.ObjectID `json:"projectId" bson:"projectId" index:"single:1"`
	EpisodeID primitive.ObjectID `json:"episodeId" bson:"episodeId" index:"single:1"`
	Step      int                `json:"step" bson:"step"` // step sở hữu job (1-5)
	Type      string             `json:"type" bson:"type"` // clean_audio, ...

	Payload map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`

	Status      string `json:"status" bson:"status" index:"single:1"` // queued, active, completed, failed
	Attempt     int    `json:"attempt" bson:"attempt"`
	MaxAttempts int    `json:"maxAttempts" bson:"maxAttempts"` // Mặc định: 3
	NextRetryAt *int64 `json:"nextRetryAt,omitempty" bson:"nextRetryAt,omitempty" index:"single:1"`

	LastError  string `json:"lastError,omitempty" bson:"lastError,omitempty"`
	CreatedAt  int64  `json:"createdAt" bson:"createdAt" index:"single:1"`
	UpdatedAt  int64  `json:"updatedAt" bson:"updatedAt"`
	StartedAt  int64  `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	FinishedAt int64  `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
}
