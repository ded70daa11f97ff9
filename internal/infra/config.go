package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	StorageDriver      string
	StorageRoot        string
	ScratchDir         string
	FilesURLPrefix     string
	S3Bucket           string
	S3Region           string
	S3Endpoint         string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	GeminiAPIKey       string
	GeminiBaseURL      string
	GeminiImageModel   string
	GeminiTimeout      time.Duration
	DefaultAspectRatio string
	DefaultResolution  string
	MaxUploadBytes     int64
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
	TracingStdout      bool
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverLocal)),
		StorageRoot:        getEnv("STORAGE_ROOT", "./uploads"),
		ScratchDir:         os.Getenv("SCRATCH_DIR"),
		FilesURLPrefix:     strings.TrimRight(getEnv("FILES_URL_PREFIX", "/files"), "/"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Region:           getEnv("S3_REGION", "auto"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel:   getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GeminiTimeout:      time.Second * time.Duration(getEnvInt("GEMINI_TIMEOUT_SECONDS", 120)),
		DefaultAspectRatio: getEnv("DEFAULT_ASPECT_RATIO", "16:9"),
		DefaultResolution:  getEnv("DEFAULT_RESOLUTION", "2K"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 32<<20)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TracingStdout:      getEnvBool("TRACING_STDOUT", false),
	}

	// Scratch files must never land under the served storage root.
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "materials-scratch")
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.StorageDriver {
	case StorageDriverLocal:
	case StorageDriverS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
