package template

import (
	"fmt"

	"github.com/flosch/pongo2/v6"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

// Jinja2Compiler compiles captions using Pongo2 (Django/Jinja2-style).
type Jinja2Compiler struct{}

// Compile parses the source as a Pongo2 template.
func (c *Jinja2Compiler) Compile(name, source string) (camera.Captioner, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jinja2 caption %q: %w", name, err)
	}
	return &jinja2Caption{tpl: tpl}, nil
}

type jinja2Caption struct {
	tpl *pongo2.Template
}

func (r *jinja2Caption) Render(ctx camera.CaptionContext) (string, error) {
	out, err := r.tpl.Execute(pongo2.Context{
		"camera":    ctx.Camera,
		"name":      ctx.Name,
		"seq":       ctx.Seq,
		"timestamp": ctx.Timestamp,
		"buffered":  ctx.Buffered,
		"capacity":  ctx.Capacity,
		"time":      timeFormatter(ctx.Timestamp),
		"bytes":     humanBytes,
		"fill":      func() int { return fillPercent(ctx.Buffered, ctx.Capacity) },
	})
	if err != nil {
		return "", fmt.Errorf("jinja2 caption render failed: %w", err)
	}
	return out, nil
}
