package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/api/router"
	"dub_studio/core/api/services"
	"dub_studio/core/database"
	"dub_studio/core/global"
	"dub_studio/core/logger"
	"dub_studio/core/notification"
	"dub_studio/core/pipeline"
	"dub_studio/core/queue"
	"dub_studio/core/storage"
	"dub_studio/core/worker"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Khởi tạo logger với cấu hình mặc định
	// Logger sẽ tự động đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Log thông tin khởi tạo bằng logger mới
	log := logger.GetAppLogger()
	log.Info("Logger system initialized successfully")
}

// buildDependencies khởi tạo toàn bộ services, pipeline và job queue.
// Thứ tự khởi tạo quan trọng: storage trước project service (cascade delete
// cần xóa object), services trước orchestrator, orchestrator trước reporter.
func buildDependencies() (router.Dependencies, *queue.Processor, error) {
	cfg := global.MongoDB_ServerConfig

	// Object storage và upload coordinator
	multipartAPI, err := storage.NewMultipartAPI(cfg)
	if err != nil {
		return router.Dependencies{}, nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	uploads := storage.NewCoordinator(multipartAPI, cfg)

	// Services
	projectService, err := services.NewProjectService(uploads)
	if err != nil {
		return router.Dependencies{}, nil, fmt.Errorf("failed to create project service: %w", err)
	}
	episodeService := services.NewEpisodeService(projectService)
	dialogueService := services.NewDialogueService(projectService)

	// Job queue
	q, err := queue.NewQueue(cfg.JobMaxAttempts)
	if err != nil {
		return router.Dependencies{}, nil, fmt.Errorf("failed to create job queue: %w", err)
	}

	// Notification sink (optional - pipeline vẫn chạy bình thường nếu không cấu hình)
	var sink notification.Sink = notification.NopSink{}
	if cfg.NotificationWebhookURL != "" {
		sink = notification.NewWebhookSink(cfg.NotificationWebhookURL)
	}

	// Pipeline orchestrator và reporter nối kết quả job queue về step sở hữu
	translator := pipeline.NewTranslationClient(cfg)
	voices := pipeline.NewVoiceClient(cfg)
	orchestrator := pipeline.NewOrchestrator(episodeService, dialogueService, q, translator, voices, sink)
	reporter := pipeline.NewJobReporter(orchestrator, projectService, episodeService)

	// Processor xử lý các job bất đồng bộ (step 1: tách và làm sạch audio)
	processor := queue.NewProcessor(q, reporter, sink, cfg.JobWorkerCount)
	processor.RegisterHandler(models.JobTypeCleanAudio, pipeline.CleanAudioHandler())

	deps := router.Dependencies{
		ProjectService:  projectService,
		EpisodeService:  episodeService,
		DialogueService: dialogueService,
		JobService:      q.JobService(),
		Orchestrator:    orchestrator,
		Uploads:         uploads,
	}
	return deps, processor, nil
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	log := logger.GetAppLogger()

	// Khởi tạo services, pipeline và job queue
	deps, processor, err := buildDependencies()
	if err != nil {
		log.Fatalf("Failed to build dependencies: %v", err)
	}

	// Context dùng chung cho các background worker, cancel khi shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Khởi động job queue processor
	processor.Start()
	log.Info("⚙️ [QUEUE] Job queue processor started successfully")

	// Khởi động retention worker dọn jobs completed/failed cũ
	retentionWorker, err := worker.NewJobRetentionWorker(10 * time.Minute)
	if err != nil {
		log.WithError(err).Error("Failed to create job retention worker, continuing without retention")
	} else {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(map[string]interface{}{
						"panic": r,
					}).Error("⚙️ [QUEUE] Retention worker goroutine panic")
				}
			}()
			retentionWorker.Start(ctx)
		}()
		log.Info("⚙️ [QUEUE] Job retention worker started successfully")
	}

	// Khởi tạo Fiber app với toàn bộ routes
	app := InitFiberApp(deps)

	// Bắt tín hiệu để shutdown có trật tự: dừng nhận request trước,
	// dừng processor sau để job đang chạy kịp ghi kết quả
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("Received signal %v, shutting down...", sig)

		if err := app.Shutdown(); err != nil {
			log.Errorf("Error during server shutdown: %v", err)
		}
		cancel()
		processor.Stop()
		if err := database.CloseInstance(global.MongoDB_Session); err != nil {
			log.Errorf("Error closing MongoDB connection: %v", err)
		}
	}()

	// Khởi động server trên main thread
	address := global.MongoDB_ServerConfig.Address
	log.WithFields(map[string]interface{}{
		"address":  address,
		"protocol": "HTTP",
	}).Info("Starting Fiber server...")

	if err := app.Listen(address); err != nil {
		log.Fatalf("Error in Fiber Listen: %v", err)
	}

	log.Info("Server stopped")
}
