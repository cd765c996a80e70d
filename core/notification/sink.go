// Package notification cung cấp sink một chiều để đẩy các sự kiện tiến độ
// (pipeline, job queue) ra ngoài hệ thống. Sink chỉ publish - lỗi gửi được
// log lại, không bao giờ lan ngược vào luồng nghiệp vụ.
package notification

import (
	"context"
)

// Các loại sự kiện được publish
const (
	EventStepCompleted = "pipeline.step.completed"
	EventStepFailed    = "pipeline.step.failed"
	EventJobCompleted  = "job.completed"
	EventJobFailed     = "job.failed"
)

// Event là một sự kiện tiến độ gửi tới sink.
type Event struct {
	Type      string                 `json:"type"`
	ProjectID string                 `json:"projectId,omitempty"`
	EpisodeID string                 `json:"episodeId,omitempty"`
	Step      int                    `json:"step,omitempty"`
	JobID     string                 `json:"jobId,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Sink nhận sự kiện để chuyển tiếp ra ngoài. Publish không trả về lỗi:
// caller không được phép phụ thuộc vào kết quả gửi notification.
type Sink interface {
	Publish(ctx context.Context, event Event)
}

// NopSink bỏ qua mọi sự kiện, dùng khi không cấu hình webhook.
type NopSink struct{}

// Publish không làm gì.
func (NopSink) Publish(ctx context.Context, event Event) {}
