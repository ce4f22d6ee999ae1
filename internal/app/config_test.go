package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Redis.JobQueue != "jobs" || cfg.Redis.KeyPrefix != "optimizer:" {
		t.Fatalf("redis names: got=%q/%q", cfg.Redis.KeyPrefix, cfg.Redis.JobQueue)
	}
	if cfg.Optimizer.CancelTTL != time.Hour {
		t.Fatalf("cancel ttl: want=1h got=%s", cfg.Optimizer.CancelTTL)
	}
	if cfg.Optimizer.OrphanJobMaxAge != 0 {
		t.Fatalf("orphan sweep: want disabled got=%s", cfg.Optimizer.OrphanJobMaxAge)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
port: "9090"
cors_origins: ["https://planner.example.com"]
postgres:
  host: db.internal
  name: planner
redis:
  addr: redis.internal:6379
optimizer:
  trigger_poll_interval: 30s
  orphan_job_max_age: 2h
  unavailability_padding_before: 1
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("UNAVAILABILITY_PADDING_AFTER", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("port: env should win, got=%q", cfg.Port)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != "5432" {
		t.Fatalf("postgres: got=%+v", cfg.Postgres)
	}
	if cfg.Optimizer.TriggerPollInterval != 30*time.Second || cfg.Optimizer.OrphanJobMaxAge != 2*time.Hour {
		t.Fatalf("optimizer durations: got=%+v", cfg.Optimizer)
	}
	if p := cfg.Optimizer.Padding(); p.Before != 1 || p.After != 2 {
		t.Fatalf("padding: got=%+v", p)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.com" {
		t.Fatalf("cors origins: got=%v", cfg.CORSOrigins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Optimizer.PaddingBefore = -1
	cfg.Otel.SampleRatio = 2
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate: want error")
	}
}
