package template

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

// ExprCompiler compiles captions using the Expr language with ${ } interpolation.
type ExprCompiler struct{}

// Compile parses the source for ${ } delimiters and compiles each expression.
func (c *ExprCompiler) Compile(name, source string) (camera.Captioner, error) {
	segments, err := parseExprSegments(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expr caption %q: %w", name, err)
	}

	for _, seg := range segments {
		if seg.program != nil {
			return &exprCaption{segments: segments}, nil
		}
	}
	return staticCaption(source), nil
}

type exprSegment struct {
	static  string
	program *vm.Program
}

func parseExprSegments(source string) ([]exprSegment, error) {
	var segments []exprSegment
	remaining := source

	for {
		idx := strings.Index(remaining, "${")
		if idx < 0 {
			if remaining != "" {
				segments = append(segments, exprSegment{static: remaining})
			}
			return segments, nil
		}
		if idx > 0 {
			segments = append(segments, exprSegment{static: remaining[:idx]})
		}

		rest := remaining[idx+2:]
		end := findClosingBrace(rest)
		if end < 0 {
			return nil, fmt.Errorf("unclosed ${ at position %d", len(source)-len(remaining)+idx)
		}

		expression := rest[:end]
		program, err := expr.Compile(expression, expr.Env(captionEnv{}))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}
		segments = append(segments, exprSegment{program: program})
		remaining = rest[end+1:]
	}
}

// findClosingBrace finds the matching } accounting for nested braces and quoted strings.
func findClosingBrace(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

type exprCaption struct {
	segments []exprSegment
}

func (r *exprCaption) Render(ctx camera.CaptionContext) (string, error) {
	env := buildCaptionEnv(ctx)

	var buf strings.Builder
	for _, seg := range r.segments {
		if seg.program == nil {
			buf.WriteString(seg.static)
			continue
		}
		result, err := expr.Run(seg.program, env)
		if err != nil {
			return "", fmt.Errorf("caption expression failed: %w", err)
		}
		fmt.Fprintf(&buf, "%v", result)
	}
	return buf.String(), nil
}
