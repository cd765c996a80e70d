package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy ứng dụng.
// Bao gồm kết nối MongoDB, object storage và các dịch vụ ngoài (dịch thuật, gán giọng).
type Configuration struct {
	Address               string `env:"ADDRESS" envDefault:":8080"`                // Địa chỉ server
	JwtSecret             string `env:"JWT_SECRET,required"`                       // Bí mật JWT (claims chứa username + phân quyền theo project)
	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI,required"`           // URL kết nối cơ sở dữ liệu
	MongoDB_DBName_Admin  string `env:"MONGODB_DBNAME_ADMIN,required"`             // Tên cơ sở dữ liệu điều khiển (projects, jobs)
	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`               // Các origins được phép (phân cách bởi dấu phẩy, * = tất cả)
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"` // Cho phép gửi credentials
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`           // Số request tối đa trong window (0 = disable rate limit)
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`         // Thời gian window (giây)
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`      // Bật/tắt rate limiting

	// Object Storage Configuration (S3-compatible)
	Storage_Endpoint  string `env:"STORAGE_ENDPOINT,required"`         // Endpoint của object storage
	Storage_AccessKey string `env:"STORAGE_ACCESS_KEY,required"`       // Access key
	Storage_SecretKey string `env:"STORAGE_SECRET_KEY,required"`       // Secret key
	Storage_Bucket    string `env:"STORAGE_BUCKET,required"`           // Bucket chứa video của các episodes
	Storage_UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"` // Dùng HTTPS khi kết nối storage

	// External Services (dịch thuật và gán giọng, gọi qua HTTP)
	TranslationServiceURL     string `env:"TRANSLATION_SERVICE_URL,required"`            // Base URL dịch vụ dịch thuật
	VoiceServiceURL           string `env:"VOICE_SERVICE_URL,required"`                  // Base URL dịch vụ gán giọng
	TranslationTimeoutMinutes int    `env:"TRANSLATION_TIMEOUT_MINUTES" envDefault:"30"` // Timeout gọi dịch thuật (phút)
	VoiceTimeoutMinutes       int    `env:"VOICE_TIMEOUT_MINUTES" envDefault:"5"`        // Timeout gọi gán giọng (phút)

	// Notification Sink (optional - pipeline vẫn chạy bình thường nếu không cấu hình)
	NotificationWebhookURL string `env:"NOTIFICATION_WEBHOOK_URL"` // URL nhận sự kiện pipeline/job

	// Job Queue
	JobMaxAttempts int `env:"JOB_MAX_ATTEMPTS" envDefault:"3"` // Số lần thử tối đa cho một job
	JobWorkerCount int `env:"JOB_WORKER_COUNT" envDefault:"2"` // Số worker xử lý job song song

	// Upload
	UploadWorkerCount int `env:"UPLOAD_WORKER_COUNT" envDefault:"3"`    // Số upload chạy song song trong một batch
	UploadPartSizeMB  int `env:"UPLOAD_PART_SIZE_MB" envDefault:"8"`    // Kích thước một part khi upload (MB)
	UploadMaxVideoMB  int `env:"UPLOAD_MAX_VIDEO_MB" envDefault:"1024"` // Giới hạn kích thước một video (MB)
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	// Mặc định sử dụng môi trường development
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Tìm thư mục config
	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			// Tìm thấy thư mục config/env
			envPath := filepath.Join(envDir, fmt.Sprintf("%s.env", env))
			return envPath
		}

		// Đi lên thư mục cha
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig sẽ đọc dữ liệu cấu hình từ file env được cung cấp
func NewConfig(files ...string) *Configuration {
	envPath := getEnvPath()
	if envPath == "" {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không tìm thấy thư mục config/env\n")
		return nil
	}

	err := godotenv.Load(envPath)
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể load file env tại %s: %v\n", envPath, err)
		return nil
	}

	cfg := Configuration{}
	err = env.Parse(&cfg)
	if err != nil {
		fmt.Printf("Lỗi khi parse config: %+v\n", err)
		return nil
	}

	return &cfg
}
