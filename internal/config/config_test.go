package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppPort != 8080 || cfg.MaxPendingRequests != 20 || cfg.RequestWindow != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Notify.Sink != NotifySinkLog || cfg.Notify.ObjectStore.Prefix != "events" {
		t.Fatalf("unexpected notify defaults: %+v", cfg.Notify)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PINGUP_PORT", "9090")
	t.Setenv("PINGUP_MAX_PENDING_REQUESTS", "5")
	t.Setenv("PINGUP_REQUEST_WINDOW", "1h")
	t.Setenv("PINGUP_THROTTLE_BURST", "not-a-number")
	t.Setenv("PINGUP_NOTIFY_SINK", "S3")
	t.Setenv("PINGUP_NOTIFY_BUCKET", "pingup-events")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppPort != 9090 || cfg.MaxPendingRequests != 5 || cfg.RequestWindow != time.Hour {
		t.Fatalf("expected overrides to apply: %+v", cfg)
	}
	if cfg.Throttle.Burst != 10 {
		t.Fatalf("expected invalid integer to fall back to default, got %d", cfg.Throttle.Burst)
	}
	if cfg.Notify.Sink != NotifySinkS3 || cfg.Notify.ObjectStore.Bucket != "pingup-events" {
		t.Fatalf("unexpected notify config: %+v", cfg.Notify)
	}
}

func TestLoadValidatesSink(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("PINGUP_NOTIFY_SINK", "s3")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for s3 sink without bucket")
	}

	t.Setenv("PINGUP_NOTIFY_SINK", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown sink")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PINGUP_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("PINGUP_LOG_LEVEL") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level from .env, got %q", cfg.LogLevel)
	}
}
