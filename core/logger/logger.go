// Package logger cung cấp hệ thống logging cho toàn bộ ứng dụng dựa trên logrus.
// Log được ghi bất đồng bộ qua AsyncHook để không block request handling,
// hỗ trợ rotation qua lumberjack và lọc log qua FilterHook.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	appLogger   *logrus.Logger
	auditLogger *logrus.Logger
	asyncHooks  []*AsyncHook
	initOnce    sync.Once
	initMu      sync.Mutex
)

// Init khởi tạo hệ thống logging từ cấu hình.
// Gọi một lần duy nhất khi ứng dụng khởi động, trước mọi thao tác log khác.
func Init(cfg *LogConfig) error {
	var initErr error
	initOnce.Do(func() {
		initErr = initLoggers(cfg)
	})
	return initErr
}

func initLoggers(cfg *LogConfig) error {
	initMu.Lock()
	defer initMu.Unlock()

	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Tạo thư mục logs nếu chưa tồn tại
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
			return err
		}
	}

	appLogger = newLogger(cfg, cfg.AppFile)
	auditLogger = newLogger(cfg, cfg.AuditFile)

	return nil
}

// newLogger tạo một logrus logger với async hook + filter hook theo cấu hình
func newLogger(cfg *LogConfig, fileName string) *logrus.Logger {
	log := logrus.New()

	// Level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	// Formatter
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// Output được ghi qua AsyncHook, logger chính không ghi trực tiếp
	log.SetOutput(io.Discard)

	// Writers theo cấu hình output
	var writers []io.Writer
	if cfg.Output == "stdout" || cfg.Output == "both" {
		writers = append(writers, os.Stdout)
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogPath, fileName),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	// FilterHook phải chạy trước AsyncHook để đánh dấu entries bị lọc
	log.AddHook(NewFilterHook(cfg))

	asyncHook := NewAsyncHookWithWriters(writers, 1000)
	log.AddHook(asyncHook)
	asyncHooks = append(asyncHooks, asyncHook)

	return log
}

// GetAppLogger trả về logger chính của ứng dụng.
// Nếu chưa được Init, khởi tạo với cấu hình mặc định để không bao giờ trả về nil.
func GetAppLogger() *logrus.Logger {
	if appLogger == nil {
		_ = Init(DefaultConfig())
	}
	return appLogger
}

// GetAuditLogger trả về logger audit (ghi lại các thao tác thay đổi dữ liệu)
func GetAuditLogger() *logrus.Logger {
	if auditLogger == nil {
		_ = Init(DefaultConfig())
	}
	return auditLogger
}

// Close flush và đóng tất cả async hooks.
// Gọi khi shutdown để không mất log entries còn trong buffer.
func Close() error {
	initMu.Lock()
	defer initMu.Unlock()

	var firstErr error
	for _, hook := range asyncHooks {
		if err := hook.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	asyncHooks = nil
	return firstErr
}
