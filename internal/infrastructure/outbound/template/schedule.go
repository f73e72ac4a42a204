package template

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

// scheduleEnv is the environment visible to sample_when expressions.
type scheduleEnv struct {
	Hour     int     `expr:"hour"`
	Minute   int     `expr:"minute"`
	Weekday  string  `expr:"weekday"`
	Seq      int     `expr:"seq"`
	Buffered int     `expr:"buffered"`
	Capacity int     `expr:"capacity"`
	Fill     float64 `expr:"fill"`
}

// ExprSchedule gates sampling with a boolean Expr expression.
type ExprSchedule struct {
	source  string
	program *vm.Program
}

// CompileSchedule compiles a sample_when expression. Example:
//
//	hour >= 6 && hour < 20 && fill < 0.9
func CompileSchedule(source string) (*ExprSchedule, error) {
	program, err := expr.Compile(source, expr.Env(scheduleEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile sample_when %q: %w", source, err)
	}
	return &ExprSchedule{source: source, program: program}, nil
}

// Allow evaluates the expression against the current tick.
func (s *ExprSchedule) Allow(ctx camera.ScheduleContext) (bool, error) {
	env := scheduleEnv{
		Hour:     ctx.Now.Hour(),
		Minute:   ctx.Now.Minute(),
		Weekday:  ctx.Now.Weekday().String(),
		Seq:      int(ctx.Seq),
		Buffered: ctx.Buffered,
		Capacity: ctx.Capacity,
	}
	if ctx.Capacity > 0 {
		env.Fill = float64(ctx.Buffered) / float64(ctx.Capacity)
	}

	out, err := expr.Run(s.program, env)
	if err != nil {
		return false, fmt.Errorf("sample_when %q: %w", s.source, err)
	}
	allowed, _ := out.(bool)
	return allowed, nil
}

// String returns the expression source.
func (s *ExprSchedule) String() string { return s.source }
