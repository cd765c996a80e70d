package worker

import (
	"context"
	"time"

	"dub_studio/core/api/services"
	"dub_studio/core/logger"
)

// JobRetentionWorker worker để áp dụng retention policy cho job queue.
// Chạy định kỳ: xóa jobs completed quá 24 giờ (giữ tối đa 100 job
// completed mới nhất) và jobs failed quá 7 ngày.
type JobRetentionWorker struct {
	jobService       *services.JobService
	interval         time.Duration // Khoảng thời gian giữa các lần chạy
	completedHours   int           // Retention jobs completed (giờ)
	completedMaxKeep int           // Số jobs completed tối đa giữ lại
	failedDays       int           // Retention jobs failed (ngày)
}

// NewJobRetentionWorker tạo mới JobRetentionWorker
// Tham số:
//   - interval: Khoảng thời gian giữa các lần chạy (mặc định: 10 phút)
//
// Trả về:
//   - *JobRetentionWorker: Instance mới của JobRetentionWorker
//   - error: Lỗi nếu có trong quá trình khởi tạo
func NewJobRetentionWorker(interval time.Duration) (*JobRetentionWorker, error) {
	jobService, err := services.NewJobService()
	if err != nil {
		return nil, err
	}

	// Set defaults
	if interval < 1*time.Minute {
		interval = 10 * time.Minute // Mặc định 10 phút
	}

	return &JobRetentionWorker{
		jobService:       jobService,
		interval:         interval,
		completedHours:   24,
		completedMaxKeep: 100,
		failedDays:       7,
	}, nil
}

// Start bắt đầu background worker áp dụng retention policy.
// Worker chạy định kỳ theo interval cho tới khi context bị cancel.
func (w *JobRetentionWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval":         w.interval.String(),
		"completedHours":   w.completedHours,
		"completedMaxKeep": w.completedMaxKeep,
		"failedDays":       w.failedDays,
	}).Info("🔄 [JOB_RETENTION] Starting Job Retention Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🔄 [JOB_RETENTION] Job Retention Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithFields(map[string]interface{}{
							"panic": r,
						}).Error("🔄 [JOB_RETENTION] Panic khi áp dụng retention, sẽ tiếp tục ở lần chạy tiếp theo")
					}
				}()

				completedRemoved, err := w.jobService.CleanupCompleted(ctx, w.completedHours, w.completedMaxKeep)
				if err != nil {
					log.WithError(err).Error("🔄 [JOB_RETENTION] Failed to cleanup completed jobs")
				}

				failedRemoved, err := w.jobService.CleanupFailed(ctx, w.failedDays)
				if err != nil {
					log.WithError(err).Error("🔄 [JOB_RETENTION] Failed to cleanup failed jobs")
				}

				if completedRemoved > 0 || failedRemoved > 0 {
					log.WithFields(map[string]interface{}{
						"completedRemoved": completedRemoved,
						"failedRemoved":    failedRemoved,
					}).Info("🔄 [JOB_RETENTION] Đã áp dụng retention policy cho job queue")
				}
				// Nếu không xóa gì, không log (giảm log noise)
			}()
		}
	}
}
