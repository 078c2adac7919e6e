package logsvc

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/telepanel/telepanel/internal/record"
)

// celFilter wraps a compiled CEL program evaluated against log records.
// When disabled (empty expression), Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("level", cel.StringType),
		cel.Variable("logger", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("module", cel.StringType),
		cel.Variable("function", cel.StringType),
		cel.Variable("line", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		// Current time in ms for windowed filters.
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against a record. Evaluation
// errors count as non-matches.
func (f celFilter) Eval(r record.Record) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"level":    string(r.Level),
		"logger":   r.Logger,
		"message":  r.Message,
		"module":   r.Module,
		"function": r.Function,
		"line":     int64(r.Line),
		"ts_ms":    r.Time.UnixMilli(),
		"now_ms":   time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
