package services

import (
	"fmt"
	"regexp"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/stage"
)

// TemplateRegistry compiles caption templates and sample_when expressions.
type TemplateRegistry interface {
	Compile(engine, name, source string) (camera.Captioner, error)
	CompileSchedule(source string) (camera.Schedule, error)
}

// SourceFactory builds frame sources from source definitions.
type SourceFactory interface {
	New(src camera.Source) (camera.FrameSource, error)
}

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// minBufferBytes leaves room for at least one small record.
const minBufferBytes = 1024

// Compiler turns camera definitions into cameras ready for sampling.
type Compiler struct {
	sources  SourceFactory
	registry TemplateRegistry
}

// NewCompiler creates a Compiler.
func NewCompiler(sources SourceFactory, registry TemplateRegistry) *Compiler {
	return &Compiler{sources: sources, registry: registry}
}

// Validate checks a definition without building its source.
func Validate(c *camera.Camera) error {
	if !validID.MatchString(c.ID) {
		return invalidf("invalid camera id %q", c.ID)
	}
	switch c.Source.Kind {
	case camera.SourceSynthetic, camera.SourceFile, camera.SourceHTTP, camera.SourceJSON, camera.SourceXML:
	default:
		return invalidf("camera %q: unknown source kind %q", c.ID, c.Source.Kind)
	}
	if c.TickInterval < 0 || c.FrameInterval < 0 {
		return invalidf("camera %q: intervals must be positive", c.ID)
	}
	if c.BufferBytes != 0 && c.BufferBytes < minBufferBytes {
		return invalidf("camera %q: buffer_bytes must be at least %d", c.ID, minBufferBytes)
	}
	if c.Source.Width < 0 || c.Source.Width > stage.MaxDimension || c.Source.Height < 0 || c.Source.Height > stage.MaxDimension {
		return invalidf("camera %q: width and height must be between 0 and %d", c.ID, stage.MaxDimension)
	}
	if c.Source.Quality < 0 || c.Source.Quality > 100 {
		return invalidf("camera %q: quality must be between 1 and 100", c.ID)
	}
	if rl := c.RateLimit; rl != nil && (rl.Rate <= 0 || rl.Burst <= 0) {
		return invalidf("camera %q: rate_limit needs positive rate and burst", c.ID)
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{camera.ErrInvalid}, args...)...)
}

// CompileCamera validates c, applies defaults and builds its source,
// caption and schedule. defaultBuffer is used when the camera sets none.
// Every error it returns wraps camera.ErrInvalid.
func (c *Compiler) CompileCamera(cam *camera.Camera, defaultBuffer int) (*camera.Compiled, error) {
	if err := Validate(cam); err != nil {
		return nil, err
	}

	src := cam.Source
	if src.Quality == 0 {
		src.Quality = camera.DefaultQuality
	}
	fs, err := c.sources.New(src)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %q: %w", camera.ErrInvalid, cam.ID, err)
	}

	out := &camera.Compiled{
		ID:            cam.ID,
		Name:          cam.Name,
		Kind:          src.Kind,
		Source:        fs,
		TickInterval:  cam.TickInterval,
		FrameInterval: cam.FrameInterval,
		BufferBytes:   cam.BufferBytes,
		Quality:       src.Quality,
		RateLimit:     cam.RateLimit,
	}
	if out.Name == "" {
		out.Name = cam.ID
	}
	if out.TickInterval == 0 {
		out.TickInterval = camera.DefaultTickInterval
	}
	if out.FrameInterval == 0 {
		out.FrameInterval = camera.DefaultFrameInterval
	}
	if out.BufferBytes == 0 {
		out.BufferBytes = defaultBuffer
		if out.BufferBytes <= 0 {
			out.BufferBytes = camera.DefaultBufferBytes
		}
	}

	if cam.Caption != nil && cam.Caption.Template != "" {
		captioner, err := c.registry.Compile(cam.Caption.Engine, cam.ID, cam.Caption.Template)
		if err != nil {
			return nil, fmt.Errorf("%w: camera %q caption: %w", camera.ErrInvalid, cam.ID, err)
		}
		out.Caption = captioner
	}
	if cam.SampleWhen != "" {
		schedule, err := c.registry.CompileSchedule(cam.SampleWhen)
		if err != nil {
			return nil, fmt.Errorf("%w: camera %q sample_when: %w", camera.ErrInvalid, cam.ID, err)
		}
		out.Schedule = schedule
	}
	return out, nil
}
