package template

import (
	"fmt"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

// EngineCompiler compiles a caption template into a Captioner.
type EngineCompiler interface {
	Compile(name, source string) (camera.Captioner, error)
}

// Registry maps engine names to their compilers.
type Registry struct {
	engines map[string]EngineCompiler
}

// NewRegistry creates a registry with the built-in engines (expr, jinja2).
func NewRegistry() *Registry {
	return &Registry{
		engines: map[string]EngineCompiler{
			"expr":   &ExprCompiler{},
			"jinja2": &Jinja2Compiler{},
		},
	}
}

// Compile resolves the engine by name and compiles the source.
// An empty engine name yields the source verbatim.
func (r *Registry) Compile(engine, name, source string) (camera.Captioner, error) {
	if engine == "" {
		return staticCaption(source), nil
	}
	ec, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("unknown caption engine: %q (supported: expr, jinja2)", engine)
	}
	return ec.Compile(name, source)
}

type staticCaption string

func (s staticCaption) Render(camera.CaptionContext) (string, error) {
	return string(s), nil
}

// CompileSchedule compiles a sample_when expression.
func (r *Registry) CompileSchedule(source string) (camera.Schedule, error) {
	return CompileSchedule(source)
}
