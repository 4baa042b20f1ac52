package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 30080 {
		t.Fatalf("unexpected default port: %d", cfg.Server.Port)
	}
	if cfg.Postgres.Database != "gamehub" {
		t.Fatalf("unexpected default database: %s", cfg.Postgres.Database)
	}
	if cfg.Snapshot.BatchSize <= 0 {
		t.Fatalf("snapshot batch size must be positive: %d", cfg.Snapshot.BatchSize)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8123")
	t.Setenv("SNAPSHOT_FLUSH_INTERVAL_SECONDS", "2")
	t.Setenv("LOG_COMPRESS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8123 {
		t.Fatalf("env override ignored: %d", cfg.Server.Port)
	}
	if cfg.Snapshot.FlushInterval != 2*time.Second {
		t.Fatalf("unexpected flush interval: %v", cfg.Snapshot.FlushInterval)
	}
	if cfg.Logging.Compress {
		t.Fatalf("expected LOG_COMPRESS=false to apply")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for port 0")
	}

	cfg.Server.Port = 8080
	cfg.Snapshot.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for batch size 0")
	}
}
