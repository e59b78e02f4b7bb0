package querymodel

import (
	"fmt"

	"github.com/roach88/qmx/internal/expr"
)

// ValidationResult contains the reference analysis of a query model.
type ValidationResult struct {
	// IsClosed indicates that every reference resolves to a source in scope
	// and that the model is well formed.
	IsClosed bool

	// Warnings lists every problem found. Empty when IsClosed is true.
	Warnings []string
}

// Validate checks that every query source reference in m, including
// references in nested sub-queries, resolves to a source in lexical scope.
//
// A source is in scope after the clause that declares it; a join's own
// source is also in scope for its inner key. Sources in outer are in scope
// everywhere, which is how a nested model is checked on its own.
//
// Validate also reports missing main from or select clauses, nil
// expressions, duplicate item names in one model, malformed result operators,
// and extension nodes, whose references cannot be verified.
//
// Validate is a pure function with no side effects.
func Validate(m *QueryModel, outer ...*expr.QuerySource) ValidationResult {
	v := &validator{
		warnings: []string{},
		scope:    append([]*expr.QuerySource(nil), outer...),
	}
	v.validateModel(m)

	return ValidationResult{
		IsClosed: len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
	scope    []*expr.QuerySource
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateModel(m *QueryModel) {
	if m == nil {
		v.addWarning("nil query model")
		return
	}

	mark := len(v.scope)
	defer func() { v.scope = v.scope[:mark] }()

	if m.MainFrom == nil {
		v.addWarning("missing main from clause")
	} else {
		v.validateExpr(m.MainFrom.FromExpr, "main from")
		v.declare(m.MainFrom.Source, mark)
	}

	for i, clause := range m.Body {
		where := fmt.Sprintf("body[%d] %s", i, clauseName(clause))
		switch c := clause.(type) {
		case *WhereClause:
			v.validateExpr(c.Predicate, where)
		case *AdditionalFromClause:
			v.validateExpr(c.FromExpr, where)
			v.declare(c.Source, mark)
		case *JoinClause:
			v.validateExpr(c.InnerSeq, where+" inner sequence")
			v.validateExpr(c.OuterKey, where+" outer key")
			v.declare(c.Source, mark)
			v.validateExpr(c.InnerKey, where+" inner key")
		case *OrderByClause:
			if len(c.Orderings) == 0 {
				v.addWarning("%s has no orderings", where)
			}
			for _, o := range c.Orderings {
				v.validateExpr(o.Expr, where)
				if o.Direction != Ascending && o.Direction != Descending {
					v.addWarning("%s: unknown direction %q", where, o.Direction)
				}
			}
		case nil:
			v.addWarning("nil clause at body[%d]", i)
		}
	}

	if m.Select == nil {
		v.addWarning("missing select clause")
	} else {
		v.validateExpr(m.Select.Selector, "select")
	}

	for _, op := range m.ResultOperators {
		v.validateResultOperator(op)
	}
}

func (v *validator) validateResultOperator(op ResultOperator) {
	if !op.Op.IsKnown() {
		v.addWarning("unknown result operator %q", op.Op)
		return
	}
	if op.Op.TakesArg() && op.Arg == nil {
		v.addWarning("result operator %s requires an argument", op.Op)
		return
	}
	if !op.Op.TakesArg() && op.Arg != nil {
		v.addWarning("result operator %s takes no argument", op.Op)
		return
	}
	if op.Arg != nil {
		v.validateExpr(op.Arg, "result operator "+string(op.Op))
	}
}

// declare brings src into scope, warning when the current model already
// declares the same item name.
func (v *validator) declare(src *expr.QuerySource, mark int) {
	if src == nil {
		v.addWarning("clause declares a nil query source")
		return
	}
	for _, s := range v.scope[mark:] {
		if s.Name() == src.Name() {
			v.addWarning("duplicate item name '%s' in one query", src.Name())
			break
		}
	}
	v.scope = append(v.scope, src)
}

func (v *validator) inScope(src *expr.QuerySource) bool {
	for _, s := range v.scope {
		if s == src {
			return true
		}
	}
	return false
}

func (v *validator) validateExpr(e expr.Expression, where string) {
	if e == nil {
		v.addWarning("nil expression in %s", where)
		return
	}

	expr.Inspect(e, func(n expr.Expression) bool {
		switch n := n.(type) {
		case *expr.QuerySourceReference:
			if !v.inScope(n.Source) {
				v.addWarning("reference to query source '%s' in %s is not in scope", n.Source, where)
			}
		case *expr.SubQuery:
			if nested, ok := n.Model.(*QueryModel); ok {
				v.validateModel(nested)
				return false
			}
		default:
			if !expr.IsKnown(n) {
				v.addWarning("extension expression kind %q in %s - references cannot be verified", n.Kind(), where)
			}
		}
		return true
	})
}

// FreeSources returns the query sources referenced anywhere in m, including
// nested sub-queries, that neither m nor any nested model declares. These
// are the sources a mapping must cover for a strict rewrite to succeed.
func FreeSources(m *QueryModel) []*expr.QuerySource {
	root := m.AsSubQuery()

	declared := make(map[*expr.QuerySource]bool)
	expr.Inspect(root, func(n expr.Expression) bool {
		if sq, ok := n.(*expr.SubQuery); ok {
			if qm, ok := sq.Model.(*QueryModel); ok {
				for _, src := range qm.Sources() {
					declared[src] = true
				}
			}
		}
		return true
	})

	var free []*expr.QuerySource
	for _, src := range expr.References(root) {
		if !declared[src] {
			free = append(free, src)
		}
	}
	return free
}
