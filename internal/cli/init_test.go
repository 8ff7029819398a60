package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	logger := SetupLogger("debug", "worker")
	if logger.Component() != "worker" {
		t.Errorf("Component() = %q, want worker", logger.Component())
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("default logger should have debug enabled")
	}

	SetupLogger("nonsense", "app")
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("unknown level should fall back to info")
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "sales.db"))
	t.Setenv("TOP_N", "3")

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TopN != 3 || cfg.DataBackend != "memory" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	t.Setenv("DATA_BACKEND", "oracle")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Error("expected validation error for unknown backend")
	}
}
