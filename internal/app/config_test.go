package app_test

import (
	"testing"

	"github.com/sophialabs/coopwatch/internal/app"
	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

func TestDefaultConfig_HasSensibleValues(t *testing.T) {
	cfg := app.DefaultConfig()

	if cfg.RootDir == "" {
		t.Error("RootDir should not be empty")
	}
	if cfg.Port == 0 {
		t.Error("Port should not be zero")
	}
	if cfg.LogLevel == "" {
		t.Error("LogLevel should not be empty")
	}
	if cfg.EventSize <= 0 {
		t.Error("EventSize should be positive")
	}
	if cfg.BufferBytes != camera.DefaultBufferBytes {
		t.Errorf("BufferBytes should default to %d, got %d", camera.DefaultBufferBytes, cfg.BufferBytes)
	}
	if cfg.LiveQueue <= 0 {
		t.Error("LiveQueue should be positive")
	}
	if cfg.RateLimiterTTL == 0 {
		t.Error("RateLimiterTTL should not be zero")
	}
	if cfg.WatcherDebounce == 0 {
		t.Error("WatcherDebounce should not be zero")
	}
	if cfg.ReadTimeout == 0 || cfg.WriteTimeout == 0 || cfg.IdleTimeout == 0 {
		t.Error("HTTP timeouts should not be zero")
	}
	if cfg.ShutdownTimeout == 0 {
		t.Error("ShutdownTimeout should not be zero")
	}
}

func TestNew_InvalidRootDir(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.RootDir = "/nonexistent/path/that/does/not/exist"

	_, err := app.New(cfg)
	if err == nil {
		t.Error("expected error for invalid root directory")
	}
}

func TestNew_WithAllLogLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "unknown"}

	for _, level := range levels {
		t.Run(level, func(t *testing.T) {
			dir := t.TempDir()
			writeTestCamera(t, dir)

			cfg := app.DefaultConfig()
			cfg.RootDir = dir
			cfg.LogLevel = level

			a, err := app.New(cfg)
			if err != nil {
				t.Fatalf("New failed for log level %q: %v", level, err)
			}
			if a == nil {
				t.Fatalf("expected non-nil App for log level %q", level)
			}
		})
	}
}
