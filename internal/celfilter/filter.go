// Package celfilter compiles CEL predicates used as the grid's advanced
// filter. The row under test is bound to the variable "row", e.g.
//
//	row.status == "open" && double(row.priority) >= 2.0
package celfilter

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/gridx/pkg/record"
)

// RowVar is the variable name rows are bound to.
const RowVar = "row"

// newEnv creates the filter environment with the common extension libraries.
func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(RowVar, cel.MapType(cel.StringType, cel.DynType)),
		celext.Strings(),
		celext.Lists(),
		celext.Math(),
	)
}

// Predicate is a compiled filter expression.
type Predicate struct {
	expr string
	prg  cel.Program
}

// Compile parses and type-checks expr. The expression must yield a bool.
func Compile(expr string) (*Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty filter expression")
	}
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(types.BoolType) && !out.IsExactType(types.DynType) {
		return nil, fmt.Errorf("filter must evaluate to bool, got %s", out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Predicate{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (p *Predicate) String() string { return p.expr }

// Match evaluates the predicate against r.
func (p *Predicate) Match(r record.Row) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{RowVar: map[string]any(r)})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T, want bool", out.Value())
	}
	return b, nil
}

// Apply keeps the rows p matches. Rows that fail to evaluate (a missing
// field, a type mismatch) are excluded and logged at V(1). A nil predicate
// returns rows unchanged.
func Apply(p *Predicate, rows []record.Row, lgr logr.Logger) []record.Row {
	if p == nil {
		return rows
	}
	out := make([]record.Row, 0, len(rows))
	for _, r := range rows {
		ok, err := p.Match(r)
		if err != nil {
			lgr.V(1).Info("filter skipped row", "expr", p.expr, "error", err.Error())
			continue
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}
