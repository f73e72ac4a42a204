package services_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/infrastructure/outbound/template"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
	"github.com/sophialabs/coopwatch/internal/testutil"
)

type stubFactory struct {
	got []camera.Source
	err error
}

func (f *stubFactory) New(src camera.Source) (camera.FrameSource, error) {
	f.got = append(f.got, src)
	if f.err != nil {
		return nil, f.err
	}
	return &testutil.StubSource{}, nil
}

func newCompiler() (*services.Compiler, *stubFactory) {
	f := &stubFactory{}
	return services.NewCompiler(f, template.NewRegistry()), f
}

func TestCompileCamera_Defaults(t *testing.T) {
	c, f := newCompiler()

	got, err := c.CompileCamera(&camera.Camera{
		ID:     "north",
		Source: camera.Source{Kind: camera.SourceSynthetic},
	}, 0)
	if err != nil {
		t.Fatalf("CompileCamera failed: %v", err)
	}

	if got.Name != "north" {
		t.Errorf("expected name to default to id, got %q", got.Name)
	}
	if got.TickInterval != time.Second || got.FrameInterval != 3*time.Second {
		t.Errorf("unexpected intervals %v %v", got.TickInterval, got.FrameInterval)
	}
	if got.BufferBytes != 5*1024*1024 {
		t.Errorf("unexpected buffer bytes %d", got.BufferBytes)
	}
	if got.Caption != nil || got.Schedule != nil {
		t.Error("expected no caption or schedule")
	}
	if len(f.got) != 1 || f.got[0].Quality != camera.DefaultQuality {
		t.Errorf("expected default quality passed to factory, got %+v", f.got)
	}
}

func TestCompileCamera_ConfigDefaultBuffer(t *testing.T) {
	c, _ := newCompiler()
	got, err := c.CompileCamera(&camera.Camera{ID: "a", Source: camera.Source{Kind: camera.SourceSynthetic}}, 2048)
	if err != nil {
		t.Fatal(err)
	}
	if got.BufferBytes != 2048 {
		t.Errorf("expected configured default buffer, got %d", got.BufferBytes)
	}
}

func TestCompileCamera_CaptionAndSchedule(t *testing.T) {
	c, _ := newCompiler()

	got, err := c.CompileCamera(&camera.Camera{
		ID:         "north",
		Name:       "North coop",
		Source:     camera.Source{Kind: camera.SourceSynthetic},
		Caption:    &camera.Caption{Engine: "expr", Template: "${name} #${seq}"},
		SampleWhen: "hour < 12",
	}, 0)
	if err != nil {
		t.Fatalf("CompileCamera failed: %v", err)
	}

	text, err := got.Caption.Render(camera.CaptionContext{Name: "North coop", Seq: 3})
	if err != nil || text != "North coop #3" {
		t.Errorf("caption = %q, %v", text, err)
	}

	ok, err := got.Schedule.Allow(camera.ScheduleContext{Now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)})
	if err != nil || !ok {
		t.Errorf("schedule at 09:00 = %v, %v", ok, err)
	}
}

func TestCompileCamera_Errors(t *testing.T) {
	synthetic := camera.Source{Kind: camera.SourceSynthetic}

	tests := []struct {
		name string
		cam  camera.Camera
		want string
	}{
		{"empty id", camera.Camera{Source: synthetic}, "invalid camera id"},
		{"path in id", camera.Camera{ID: "../x", Source: synthetic}, "invalid camera id"},
		{"unknown kind", camera.Camera{ID: "a", Source: camera.Source{Kind: "rtsp"}}, "unknown source kind"},
		{"negative interval", camera.Camera{ID: "a", Source: synthetic, FrameInterval: -time.Second}, "intervals"},
		{"tiny buffer", camera.Camera{ID: "a", Source: synthetic, BufferBytes: 64}, "buffer_bytes"},
		{"quality", camera.Camera{ID: "a", Source: camera.Source{Kind: camera.SourceSynthetic, Quality: 101}}, "quality"},
		{"rate limit", camera.Camera{ID: "a", Source: synthetic, RateLimit: &camera.RateLimit{Rate: 1}}, "rate_limit"},
		{"caption engine", camera.Camera{ID: "a", Source: synthetic, Caption: &camera.Caption{Engine: "erb", Template: "x"}}, "caption"},
		{"schedule", camera.Camera{ID: "a", Source: synthetic, SampleWhen: "hour +"}, "sample_when"},
		{"width", camera.Camera{ID: "a", Source: camera.Source{Kind: camera.SourceSynthetic, Width: 70000}}, "width and height"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCompiler()
			_, err := c.CompileCamera(&tt.cam, 0)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
			if !errors.Is(err, camera.ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestCompileCamera_SourceError(t *testing.T) {
	f := &stubFactory{err: errors.New("http source requires url")}
	c := services.NewCompiler(f, template.NewRegistry())

	_, err := c.CompileCamera(&camera.Camera{ID: "a", Source: camera.Source{Kind: camera.SourceHTTP}}, 0)
	if err == nil || !strings.Contains(err.Error(), "requires url") {
		t.Errorf("expected factory error, got %v", err)
	}
	if !errors.Is(err, camera.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
