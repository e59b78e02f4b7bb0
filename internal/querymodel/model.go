package querymodel

import (
	"fmt"
	"strings"

	"github.com/roach88/qmx/internal/expr"
)

// QueryModel is a query: a main from clause, body clauses, a select clause
// and result operators, in that order.
type QueryModel struct {
	MainFrom        *MainFromClause
	Body            []BodyClause
	Select          *SelectClause
	ResultOperators []ResultOperator
}

var _ expr.Model = (*QueryModel)(nil)

// New returns a model that iterates from over src and selects selector.
func New(src *expr.QuerySource, from, selector expr.Expression, body ...BodyClause) *QueryModel {
	return &QueryModel{
		MainFrom: &MainFromClause{Source: src, FromExpr: from},
		Body:     body,
		Select:   &SelectClause{Selector: selector},
	}
}

// AsSubQuery wraps m in a sub-query expression.
func (m *QueryModel) AsSubQuery() *expr.SubQuery {
	return &expr.SubQuery{Model: m}
}

// TransformExpressions implements expr.Model.
func (m *QueryModel) TransformExpressions(fn expr.TransformFunc) (expr.Model, error) {
	out, err := m.Transform(fn)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transform applies fn to every expression the model owns, in clause order,
// and returns a model with the results. Clauses with no changed expression
// are shared with m; m itself is returned when nothing changed. Nil
// expressions are not passed to fn. The first error from fn is returned
// as is, so failures from nested sub-queries reach the caller unchanged.
func (m *QueryModel) Transform(fn expr.TransformFunc) (*QueryModel, error) {
	t := &transformer{fn: fn}

	var mainFrom *MainFromClause
	if m.MainFrom != nil {
		from := t.apply(m.MainFrom.FromExpr)
		mainFrom = m.MainFrom
		if t.changedNow() {
			mainFrom = &MainFromClause{Source: m.MainFrom.Source, FromExpr: from}
		}
	}
	if t.err != nil {
		return nil, t.err
	}

	body := m.Body
	bodyChanged := false
	for i, clause := range m.Body {
		out := t.clause(clause)
		if t.err != nil {
			return nil, t.err
		}
		if out != clause {
			if !bodyChanged {
				body = make([]BodyClause, len(m.Body))
				copy(body, m.Body)
				bodyChanged = true
			}
			body[i] = out
		}
	}

	sel := m.Select
	if m.Select != nil {
		selector := t.apply(m.Select.Selector)
		if t.changedNow() {
			sel = &SelectClause{Selector: selector}
		}
	}
	if t.err != nil {
		return nil, t.err
	}

	ops := m.ResultOperators
	opsChanged := false
	for i, op := range m.ResultOperators {
		arg := t.apply(op.Arg)
		if t.err != nil {
			return nil, t.err
		}
		if t.changedNow() {
			if !opsChanged {
				ops = make([]ResultOperator, len(m.ResultOperators))
				copy(ops, m.ResultOperators)
				opsChanged = true
			}
			ops[i] = ResultOperator{Op: op.Op, Arg: arg}
		}
	}

	if !t.any {
		return m, nil
	}
	return &QueryModel{MainFrom: mainFrom, Body: body, Select: sel, ResultOperators: ops}, nil
}

// transformer applies fn and tracks whether anything changed. After the
// first error every further apply is a no-op.
type transformer struct {
	fn      expr.TransformFunc
	err     error
	any     bool // any expression changed
	pending bool // an expression changed since the last changedNow
}

func (t *transformer) apply(e expr.Expression) expr.Expression {
	if e == nil || t.err != nil {
		return e
	}
	out, err := t.fn(e)
	if err != nil {
		t.err = err
		return e
	}
	if !expr.Same(out, e) {
		t.any = true
		t.pending = true
	}
	return out
}

// changedNow reports whether any apply since the previous call changed its
// expression, and resets the flag.
func (t *transformer) changedNow() bool {
	c := t.pending
	t.pending = false
	return c
}

func (t *transformer) clause(c BodyClause) BodyClause {
	switch c := c.(type) {
	case *WhereClause:
		pred := t.apply(c.Predicate)
		if t.changedNow() {
			return &WhereClause{Predicate: pred}
		}
	case *AdditionalFromClause:
		from := t.apply(c.FromExpr)
		if t.changedNow() {
			return &AdditionalFromClause{Source: c.Source, FromExpr: from}
		}
	case *JoinClause:
		inner := t.apply(c.InnerSeq)
		outerKey := t.apply(c.OuterKey)
		innerKey := t.apply(c.InnerKey)
		if t.changedNow() {
			return &JoinClause{Source: c.Source, InnerSeq: inner, OuterKey: outerKey, InnerKey: innerKey}
		}
	case *OrderByClause:
		orderings := make([]Ordering, len(c.Orderings))
		for i, o := range c.Orderings {
			orderings[i] = Ordering{Expr: t.apply(o.Expr), Direction: o.Direction}
		}
		if t.changedNow() {
			return &OrderByClause{Orderings: orderings}
		}
	}
	return c
}

// Expressions implements expr.Model. It returns every non-nil expression the
// model owns, in clause order.
func (m *QueryModel) Expressions() []expr.Expression {
	var out []expr.Expression
	add := func(es ...expr.Expression) {
		for _, e := range es {
			if e != nil {
				out = append(out, e)
			}
		}
	}

	if m.MainFrom != nil {
		add(m.MainFrom.FromExpr)
	}
	for _, clause := range m.Body {
		add(clauseExpressions(clause)...)
	}
	if m.Select != nil {
		add(m.Select.Selector)
	}
	for _, op := range m.ResultOperators {
		add(op.Arg)
	}
	return out
}

func clauseExpressions(c BodyClause) []expr.Expression {
	switch c := c.(type) {
	case *WhereClause:
		return []expr.Expression{c.Predicate}
	case *AdditionalFromClause:
		return []expr.Expression{c.FromExpr}
	case *JoinClause:
		return []expr.Expression{c.InnerSeq, c.OuterKey, c.InnerKey}
	case *OrderByClause:
		out := make([]expr.Expression, len(c.Orderings))
		for i, o := range c.Orderings {
			out[i] = o.Expr
		}
		return out
	default:
		return nil
	}
}

func clauseName(c BodyClause) string {
	switch c.(type) {
	case *WhereClause:
		return "where"
	case *AdditionalFromClause:
		return "from"
	case *JoinClause:
		return "join"
	case *OrderByClause:
		return "orderby"
	default:
		return fmt.Sprintf("%T", c)
	}
}

// Sources returns the query sources declared directly by m (not by nested
// sub-queries), in declaration order.
func (m *QueryModel) Sources() []*expr.QuerySource {
	var out []*expr.QuerySource
	if m.MainFrom != nil && m.MainFrom.Source != nil {
		out = append(out, m.MainFrom.Source)
	}
	for _, clause := range m.Body {
		if src := clauseSource(clause); src != nil {
			out = append(out, src)
		}
	}
	return out
}

func clauseSource(c BodyClause) *expr.QuerySource {
	switch c := c.(type) {
	case *AdditionalFromClause:
		return c.Source
	case *JoinClause:
		return c.Source
	default:
		return nil
	}
}

// String renders the model in query syntax, e.g.
// "from Product p in [o].Lines where ([p].Price > 0) select [p]".
func (m *QueryModel) String() string {
	var parts []string
	if m.MainFrom != nil {
		parts = append(parts, m.MainFrom.String())
	}
	for _, clause := range m.Body {
		if clause == nil {
			parts = append(parts, "<nil clause>")
			continue
		}
		parts = append(parts, clause.String())
	}
	if m.Select != nil {
		parts = append(parts, m.Select.String())
	}
	s := strings.Join(parts, " ")
	for _, op := range m.ResultOperators {
		s += " => " + op.String()
	}
	return s
}
