package queue

import (
	"context"
	"errors"
	"testing"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
	"dub_studio/core/notification"
	"dub_studio/core/utility"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeJobStore ghi lại mọi cập nhật persistence mà processor phát ra.
type fakeJobStore struct {
	retries   []retryCall
	failed    []string
	completed int
}

type retryCall struct {
	nextRetryAt int64
	lastError   string
}

func (f *fakeJobStore) claimNext(ctx context.Context, staleMinutes int) (models.Job, error) {
	return models.Job{}, common.ErrNotFound
}

func (f *fakeJobStore) markCompleted(ctx context.Context, job *models.Job) error {
	f.completed++
	return nil
}

func (f *fakeJobStore) scheduleRetry(ctx context.Context, job *models.Job, nextRetryAt int64, lastError string) error {
	f.retries = append(f.retries, retryCall{nextRetryAt: nextRetryAt, lastError: lastError})
	return nil
}

func (f *fakeJobStore) markFailed(ctx context.Context, job *models.Job, message string) error {
	f.failed = append(f.failed, message)
	return nil
}

// fakeReporter ghi lại kết quả job được lan truyền về step sở hữu.
type fakeReporter struct {
	completed []string
	failed    []string
}

func (f *fakeReporter) ReportJobCompleted(ctx context.Context, job *models.Job, output map[string]interface{}) error {
	f.completed = append(f.completed, job.JobID)
	return nil
}

func (f *fakeReporter) ReportJobFailed(ctx context.Context, job *models.Job, message string) error {
	f.failed = append(f.failed, message)
	return nil
}

// fakeSink gom các event đã publish.
type fakeSink struct {
	events []notification.Event
}

func (f *fakeSink) Publish(ctx context.Context, event notification.Event) {
	f.events = append(f.events, event)
}

func newTestProcessor(store *fakeJobStore, reporter *fakeReporter, sink *fakeSink) *Processor {
	return &Processor{
		jobs:     store,
		reporter: reporter,
		sink:     sink,
		handlers: make(map[string]HandlerFunc),
		stopCh:   make(chan struct{}),
	}
}

func newTestJob(attempt int) models.Job {
	return models.Job{
		ID:          primitive.NewObjectID(),
		JobID:       "job-test-1",
		ProjectID:   primitive.NewObjectID(),
		EpisodeID:   primitive.NewObjectID(),
		Step:        1,
		Type:        models.JobTypeCleanAudio,
		Status:      models.JobStatusActive,
		Attempt:     attempt,
		MaxAttempts: 3,
	}
}

func TestProcessor_RetryVaFailTerminal(t *testing.T) {
	t.Run("Job thất bại 3 lần chuyển sang failed và báo step sở hữu", func(t *testing.T) {
		store := &fakeJobStore{}
		reporter := &fakeReporter{}
		sink := &fakeSink{}
		p := newTestProcessor(store, reporter, sink)
		p.RegisterHandler(models.JobTypeCleanAudio, func(ctx context.Context, job *models.Job) (map[string]interface{}, error) {
			return nil, errors.New("clean audio service không phản hồi")
		})

		ctx := context.Background()
		for attempt := 1; attempt <= 3; attempt++ {
			job := newTestJob(attempt)
			before := utility.CurrentTimeInMilli()
			p.processJob(ctx, &job)

			if attempt < 3 {
				assert.Len(t, store.retries, attempt)
				call := store.retries[attempt-1]
				// Backoff lũy thừa: attempt 1 -> +1s, attempt 2 -> +2s
				expectedBackoff := int64(1000) << (attempt - 1)
				assert.InDelta(t, before+expectedBackoff, call.nextRetryAt, 500)
				assert.Equal(t, "clean audio service không phản hồi", call.lastError)
			}
		}

		// Lần thử cuối: failed vĩnh viễn, không retry thêm
		assert.Len(t, store.retries, 2)
		assert.Equal(t, []string{"clean audio service không phản hồi"}, store.failed)
		assert.Equal(t, []string{"clean audio service không phản hồi"}, reporter.failed)
		assert.Empty(t, reporter.completed)
		assert.Zero(t, store.completed)

		// Chỉ một event failed được publish, sau khi hết retry
		assert.Len(t, sink.events, 1)
		assert.Equal(t, notification.EventJobFailed, sink.events[0].Type)
		assert.Equal(t, "job-test-1", sink.events[0].JobID)
	})

	t.Run("Job thành công đánh dấu completed và báo step sở hữu", func(t *testing.T) {
		store := &fakeJobStore{}
		reporter := &fakeReporter{}
		sink := &fakeSink{}
		p := newTestProcessor(store, reporter, sink)
		p.RegisterHandler(models.JobTypeCleanAudio, func(ctx context.Context, job *models.Job) (map[string]interface{}, error) {
			return map[string]interface{}{"cleanedAudioKey": "audio/clean.wav"}, nil
		})

		job := newTestJob(1)
		p.processJob(context.Background(), &job)

		assert.Equal(t, 1, store.completed)
		assert.Empty(t, store.retries)
		assert.Empty(t, store.failed)
		assert.Equal(t, []string{"job-test-1"}, reporter.completed)
		assert.Len(t, sink.events, 1)
		assert.Equal(t, notification.EventJobCompleted, sink.events[0].Type)
	})

	t.Run("Job không có handler fail ngay không retry", func(t *testing.T) {
		store := &fakeJobStore{}
		reporter := &fakeReporter{}
		sink := &fakeSink{}
		p := newTestProcessor(store, reporter, sink)

		job := newTestJob(1)
		job.Type = "job_type_khong_ton_tai"
		p.processJob(context.Background(), &job)

		assert.Empty(t, store.retries)
		assert.Len(t, store.failed, 1)
		assert.Len(t, reporter.failed, 1)
		assert.Contains(t, store.failed[0], "job_type_khong_ton_tai")
	})
}
