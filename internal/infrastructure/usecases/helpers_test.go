package usecases_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

var epoch = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

type mockRepo struct {
	cameras []*camera.Camera
	err     error

	saved   []*camera.Camera
	deleted []string
}

func (r *mockRepo) LoadAll(context.Context) ([]*camera.Camera, error) {
	return r.cameras, r.err
}

func (r *mockRepo) LoadByID(_ context.Context, id string) (*camera.Camera, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, c := range r.cameras {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("camera %q: %w", id, camera.ErrNotFound)
}

func (r *mockRepo) SaveCamera(_ context.Context, c *camera.Camera, _ []byte) error {
	r.saved = append(r.saved, c)
	return nil
}

func (r *mockRepo) DeleteCamera(_ context.Context, sourceFile string, sourceIndex int) error {
	r.deleted = append(r.deleted, fmt.Sprintf("%s#%d", sourceFile, sourceIndex))
	return nil
}

// ParseCamera understands a tiny "id kind [when=expr] [engine=name]"
// format, enough for use case tests.
func (r *mockRepo) ParseCamera(data []byte) (*camera.Camera, error) {
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: want \"id kind\", got %q", camera.ErrInvalid, data)
	}
	c := &camera.Camera{ID: fields[0], Source: camera.Source{Kind: fields[1]}}
	for _, f := range fields[2:] {
		key, value, _ := strings.Cut(f, "=")
		switch key {
		case "when":
			c.SampleWhen = value
		case "engine":
			c.Caption = &camera.Caption{Engine: value, Template: c.ID}
		}
	}
	return c, nil
}

func (r *mockRepo) ReadSourceYAML(context.Context, *camera.Camera) ([]byte, error) {
	return nil, nil
}

type captionFunc func(camera.CaptionContext) (string, error)

func (f captionFunc) Render(ctx camera.CaptionContext) (string, error) { return f(ctx) }

type scheduleFunc func(camera.ScheduleContext) (bool, error)

func (f scheduleFunc) Allow(ctx camera.ScheduleContext) (bool, error) { return f(ctx) }

type recordingAnnotator struct {
	texts []string
}

func (a *recordingAnnotator) Annotate(img frame.Image, text string, _ int) (frame.Image, error) {
	a.texts = append(a.texts, text)
	img.Data = append(append([]byte(nil), img.Data...), []byte(text)...)
	return img, nil
}

type catalog map[string]*camera.Compiled

func (c catalog) Lookup(id string) (*camera.Compiled, bool) {
	cam, ok := c[id]
	return cam, ok
}
