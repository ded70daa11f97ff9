package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("STORAGE_ROOT", "")
	t.Setenv("SCRATCH_DIR", "")
	t.Setenv("FILES_URL_PREFIX", "")
	t.Setenv("DEFAULT_ASPECT_RATIO", "")
	t.Setenv("DEFAULT_RESOLUTION", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageDriver != StorageDriverLocal {
		t.Fatalf("StorageDriver = %q, want %q", cfg.StorageDriver, StorageDriverLocal)
	}
	if cfg.StorageRoot != "./uploads" || cfg.ScratchDir != filepath.Join(os.TempDir(), "materials-scratch") {
		t.Fatalf("storage dirs mismatch: root=%q scratch=%q", cfg.StorageRoot, cfg.ScratchDir)
	}
	if cfg.FilesURLPrefix != "/files" {
		t.Fatalf("FilesURLPrefix = %q, want /files", cfg.FilesURLPrefix)
	}
	if cfg.DefaultAspectRatio != "16:9" || cfg.DefaultResolution != "2K" {
		t.Fatalf("generation defaults mismatch: %q %q", cfg.DefaultAspectRatio, cfg.DefaultResolution)
	}
	if cfg.GeminiTimeout != 120*time.Second {
		t.Fatalf("GeminiTimeout = %s", cfg.GeminiTimeout)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadConfigS3RequiresBucket(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("S3_BUCKET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without S3_BUCKET")
	}

	t.Setenv("S3_BUCKET", "materials")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageDriver != StorageDriverS3 {
		t.Fatalf("StorageDriver = %q, want %q", cfg.StorageDriver, StorageDriverS3)
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_DRIVER", "ftp")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestLoadConfigTrimsPrefixAndSplitsOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("FILES_URL_PREFIX", "https://cdn.example.com/files/")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://localhost:3000, ,https://app.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.FilesURLPrefix != "https://cdn.example.com/files" {
		t.Fatalf("FilesURLPrefix = %q", cfg.FilesURLPrefix)
	}
	want := []string{"http://localhost:3000", "https://app.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}
