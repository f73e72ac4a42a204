package wiring_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sophialabs/coopwatch/internal/infrastructure/wiring"
	"github.com/sophialabs/coopwatch/internal/testutil"
)

func validParams(t *testing.T) wiring.Params {
	t.Helper()
	dir := t.TempDir()
	camerasDir := filepath.Join(dir, "cameras")
	if err := os.MkdirAll(camerasDir, 0o755); err != nil {
		t.Fatalf("failed to create cameras dir: %v", err)
	}
	yaml := `id: north
name: North coop
source:
  kind: synthetic
  width: 160
  height: 90
caption:
  template: north
`
	if err := os.WriteFile(filepath.Join(camerasDir, "north.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write camera file: %v", err)
	}

	return wiring.Params{
		RootDir:        dir,
		EventSize:      50,
		BufferBytes:    64 * 1024,
		LiveQueue:      2,
		RateLimiterTTL: 5 * time.Minute,
		Logger:         &testutil.NoopLogger{},
		Clock:          testutil.NewFakeClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func TestNew_Success(t *testing.T) {
	p := validParams(t)
	c, err := wiring.New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if c.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if c.Server() == nil {
		t.Error("Server() returned nil")
	}
	if c.Runner() == nil {
		t.Error("Runner() returned nil")
	}
	if c.Sessions() == nil {
		t.Error("Sessions() returned nil")
	}
	if c.LoadCamerasUseCase() == nil {
		t.Error("LoadCamerasUseCase() returned nil")
	}
	if c.RateLimiterStore() == nil {
		t.Error("RateLimiterStore() returned nil")
	}
	if c.Events() == nil || c.Hub() == nil || c.Stages() == nil {
		t.Error("expected events, hub and stages")
	}
	if c.CamerasDir() != filepath.Join(p.RootDir, "cameras") {
		t.Errorf("unexpected cameras dir %q", c.CamerasDir())
	}
}

func TestNew_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*wiring.Params)
	}{
		{"missing root", func(p *wiring.Params) { p.RootDir = "/nonexistent/path/that/does/not/exist" }},
		{"zero event size", func(p *wiring.Params) { p.EventSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams(t)
			tt.mutate(&p)
			c, err := wiring.New(p)
			if err == nil {
				c.Close()
				t.Fatal("expected error")
			}
			if c != nil {
				t.Error("expected nil container on error")
			}
		})
	}
}

func TestNew_ComponentsAreWiredCorrectly(t *testing.T) {
	p := validParams(t)
	c, err := wiring.New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if err := c.Server().Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	cam, ok := c.Runner().Lookup("north")
	if !ok {
		t.Fatal("expected north to be loaded into the runner")
	}
	if cam.BufferBytes != p.BufferBytes {
		t.Errorf("expected default buffer %d, got %d", p.BufferBytes, cam.BufferBytes)
	}

	// A captured frame flows through the stage, the events log and the API.
	if _, err := c.Runner().SampleOnce(context.Background(), "north"); err != nil {
		t.Fatalf("SampleOnce failed: %v", err)
	}
	if c.Events().Count() == 0 {
		t.Error("expected a staged event")
	}
	w := httptest.NewRecorder()
	c.Server().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/cameras/north/frames/latest", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected captioned JPEG, got %s", ct)
	}
}

func TestNew_SessionsCloseWithCamera(t *testing.T) {
	p := validParams(t)
	c, err := wiring.New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Server().Reload(ctx); err != nil {
		t.Fatal(err)
	}
	sess, err := c.Sessions().Connect(ctx, "north")
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(p.RootDir, "cameras", "north.yaml")); err != nil {
		t.Fatal(err)
	}
	if err := c.Server().Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Sessions().Get(sess.ID); err == nil {
		t.Error("session should be closed when its camera is removed")
	}
}

func TestNew_LoggerIsPassedThrough(t *testing.T) {
	p := validParams(t)
	logger := &testutil.NoopLogger{}
	p.Logger = logger

	c, err := wiring.New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if c.Logger() != logger {
		t.Error("Logger() does not return the same logger instance passed in Params")
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	p := validParams(t)
	c, err := wiring.New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Double close must not panic.
	c.Close()
	c.Close()
}
