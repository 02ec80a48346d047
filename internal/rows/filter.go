package rows

import (
	"strings"

	"github.com/google/cel-go/cel"
)

// Filter wraps a compiled CEL program evaluated against a raw row. When
// disabled (empty expression), Match always returns true. The expression
// sees the row as a string map plus its column count:
//
//	row["eventProps.Product ID"] != "" && size(row) > 3
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles expr into a row filter. An empty or whitespace-only
// expression yields a disabled filter and no error.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("row", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("columns", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Enabled reports whether an expression is loaded.
func (f Filter) Enabled() bool { return f.enabled }

// Match evaluates the filter against a row. When disabled, returns true.
// Evaluation errors count as non-matches.
func (f Filter) Match(row Row) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"row":     map[string]string(row),
		"columns": int64(len(row)),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// ApplyFilter returns the rows matching f, preserving order. A disabled
// filter returns the input slice unchanged.
func ApplyFilter(f Filter, rs []Row) []Row {
	if !f.enabled {
		return rs
	}
	out := make([]Row, 0, len(rs))
	for _, r := range rs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
