package queue

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/logger"
	"dub_studio/core/notification"
	"dub_studio/core/utility"
)

// HandlerFunc thực thi một loại job, trả về output ghi vào step sở hữu.
type HandlerFunc func(ctx context.Context, job *models.Job) (map[string]interface{}, error)

// StepReporter nhận kết quả cuối cùng của job để cập nhật step sở hữu
// trên Episode - job thất bại hết số lần thử không bao giờ bị nuốt.
type StepReporter interface {
	ReportJobCompleted(ctx context.Context, job *models.Job, output map[string]interface{}) error
	ReportJobFailed(ctx context.Context, job *models.Job, message string) error
}

// jobStore là phần persistence của queue mà processor cần.
type jobStore interface {
	claimNext(ctx context.Context, staleMinutes int) (models.Job, error)
	markCompleted(ctx context.Context, job *models.Job) error
	scheduleRetry(ctx context.Context, job *models.Job, nextRetryAt int64, lastError string) error
	markFailed(ctx context.Context, job *models.Job, message string) error
}

// Processor chạy vòng lặp claim-execute trên job queue với một pool
// worker goroutines cố định.
type Processor struct {
	jobs     jobStore
	reporter StepReporter
	sink     notification.Sink

	handlers     map[string]HandlerFunc
	workers      int
	pollInterval time.Duration
	staleMinutes int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewProcessor tạo mới Processor. workers <= 0 dùng mặc định 2.
func NewProcessor(q *Queue, reporter StepReporter, sink notification.Sink, workers int) *Processor {
	if workers <= 0 {
		workers = 2
	}
	if sink == nil {
		sink = notification.NopSink{}
	}
	return &Processor{
		jobs:         q,
		reporter:     reporter,
		sink:         sink,
		handlers:     make(map[string]HandlerFunc),
		workers:      workers,
		pollInterval: 2 * time.Second,
		staleMinutes: 5,
		stopCh:       make(chan struct{}),
	}
}

// RegisterHandler đăng ký handler cho một loại job.
func (p *Processor) RegisterHandler(jobType string, handler HandlerFunc) {
	p.handlers[jobType] = handler
}

// Start chạy các worker goroutines. Gọi Stop để dừng.
func (p *Processor) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			utility.GoProtect(func() {
				p.runWorker(workerID)
			})
		}(i)
	}
	logger.GetAppLogger().WithField("workers", p.workers).Info("Job queue processor đã khởi động")
}

// Stop dừng các workers và chờ job đang chạy kết thúc.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
	logger.GetAppLogger().Info("Job queue processor đã dừng")
}

// runWorker là vòng lặp của một worker: claim job sẵn sàng, thực thi,
// nghỉ pollInterval khi queue rỗng.
func (p *Processor) runWorker(workerID int) {
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		job, err := p.jobs.claimNext(ctx, p.staleMinutes)
		if err != nil {
			cancel()
			// Queue rỗng hoặc lỗi tạm thời - nghỉ rồi thử lại
			select {
			case <-p.stopCh:
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		p.processJob(ctx, &job)
		cancel()
	}
}

// processJob thực thi một job đã claim và cập nhật kết quả.
func (p *Processor) processJob(ctx context.Context, job *models.Job) {
	log := logger.GetAppLogger()

	handler, ok := p.handlers[job.Type]
	if !ok {
		// Không có handler là lỗi cấu hình, không retry được
		p.failTerminal(ctx, job, fmt.Sprintf("không có handler cho loại job '%s'", job.Type))
		return
	}

	output, err := handler(ctx, job)
	if err != nil {
		p.handleRetryOrFail(ctx, job, err)
		return
	}

	if err := p.jobs.markCompleted(ctx, job); err != nil {
		log.WithField("jobId", job.JobID).Errorf("Không thể đánh dấu job completed: %v", err)
	}
	if err := p.reporter.ReportJobCompleted(ctx, job, output); err != nil {
		log.WithField("jobId", job.JobID).Errorf("Không thể ghi kết quả job lên step sở hữu: %v", err)
	}

	p.sink.Publish(ctx, notification.Event{
		Type:      notification.EventJobCompleted,
		ProjectID: job.ProjectID.Hex(),
		EpisodeID: job.EpisodeID.Hex(),
		Step:      job.Step,
		JobID:     job.JobID,
	})
}

// handleRetryOrFail xử lý retry logic cho mọi error case.
// Nếu chưa hết retry: set nextRetryAt theo backoff lũy thừa (bắt đầu 1s),
// reset về queued. Nếu đã hết retry: đánh dấu failed và báo step sở hữu.
func (p *Processor) handleRetryOrFail(ctx context.Context, job *models.Job, cause error) {
	if job.Attempt < job.MaxAttempts {
		// Backoff lũy thừa: attempt 1 -> 1s, attempt 2 -> 2s, attempt 3 -> 4s
		backoffMillis := int64(math.Pow(2, float64(job.Attempt-1))) * 1000
		nextRetryAt := utility.CurrentTimeInMilli() + backoffMillis

		if err := p.jobs.scheduleRetry(ctx, job, nextRetryAt, cause.Error()); err != nil {
			logger.GetAppLogger().WithField("jobId", job.JobID).Errorf("Không thể schedule retry cho job: %v", err)
		}
		return
	}

	p.failTerminal(ctx, job, cause.Error())
}

// failTerminal đánh dấu job failed vĩnh viễn và ghi lỗi lên step sở hữu.
func (p *Processor) failTerminal(ctx context.Context, job *models.Job, message string) {
	log := logger.GetAppLogger()

	if err := p.jobs.markFailed(ctx, job, message); err != nil {
		log.WithField("jobId", job.JobID).Errorf("Không thể đánh dấu job failed: %v", err)
	}

	if err := p.reporter.ReportJobFailed(ctx, job, message); err != nil {
		log.WithField("jobId", job.JobID).Errorf("Không thể ghi lỗi job lên step sở hữu: %v", err)
	}

	p.sink.Publish(ctx, notification.Event{
		Type:      notification.EventJobFailed,
		ProjectID: job.ProjectID.Hex(),
		EpisodeID: job.EpisodeID.Hex(),
		Step:      job.Step,
		JobID:     job.JobID,
		Message:   message,
	})
}
