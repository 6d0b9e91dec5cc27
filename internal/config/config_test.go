package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestVisionConfigKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "key-a", []string{"key-a"}},
		{"multiple", "key-a,key-b,key-c", []string{"key-a", "key-b", "key-c"}},
		{"padded and empty entries", " key-a , ,key-b,, ", []string{"key-a", "key-b"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := VisionConfig{APIKeys: tt.raw}
			got := cfg.Keys()
			if len(got) != len(tt.want) {
				t.Fatalf("Keys() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Keys()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Quota.DailyLimit != 25 {
		t.Errorf("quota.daily_limit = %d, want 25", cfg.Quota.DailyLimit)
	}
	if !cfg.Quota.FailOpen {
		t.Error("quota.fail_open should default to true")
	}
	if cfg.Vision.Timeout != 60*time.Second {
		t.Errorf("vision.timeout = %v, want 60s", cfg.Vision.Timeout)
	}
	if cfg.Upload.MaxSizeBytes != 10*1024*1024 {
		t.Errorf("upload.max_size_bytes = %d, want 10MB", cfg.Upload.MaxSizeBytes)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
  mode: release
quota:
  daily_limit: 5
  utc_offset_minutes: 330
vision:
  model: test-model
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("server.mode = %q, want release", cfg.Server.Mode)
	}
	if cfg.Quota.DailyLimit != 5 {
		t.Errorf("quota.daily_limit = %d, want 5", cfg.Quota.DailyLimit)
	}
	if cfg.Quota.UTCOffsetMinutes != 330 {
		t.Errorf("quota.utc_offset_minutes = %d, want 330", cfg.Quota.UTCOffsetMinutes)
	}
	if cfg.Vision.Model != "test-model" {
		t.Errorf("vision.model = %q, want test-model", cfg.Vision.Model)
	}
	// Untouched sections keep their defaults.
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database.driver = %q, want sqlite", cfg.Database.Driver)
	}
}
