package querymodel

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/rewrite"
)

// ordersQuery builds:
//
//	from Order o in Orders
//	join Customer c in Customers on [o].CustomerId equals [c].Id
//	where ([o].Total > 100)
//	orderby [o].Placed desc
//	select [c].Name
//	=> take(10)
func ordersQuery() (*QueryModel, *expr.QuerySource, *expr.QuerySource) {
	o := expr.NewQuerySource("o", "Order")
	c := expr.NewQuerySource("c", "Customer")
	m := &QueryModel{
		MainFrom: &MainFromClause{Source: o, FromExpr: &expr.MemberAccess{Member: "Orders"}},
		Body: []BodyClause{
			&JoinClause{
				Source:   c,
				InnerSeq: &expr.MemberAccess{Member: "Customers"},
				OuterKey: expr.Member(expr.Ref(o), "CustomerId"),
				InnerKey: expr.Member(expr.Ref(c), "Id"),
			},
			&WhereClause{Predicate: expr.Bin(expr.OpGreater, expr.Member(expr.Ref(o), "Total"), expr.Const(100))},
			&OrderByClause{Orderings: []Ordering{{Expr: expr.Member(expr.Ref(o), "Placed"), Direction: Descending}}},
		},
		Select:          &SelectClause{Selector: expr.Member(expr.Ref(c), "Name")},
		ResultOperators: []ResultOperator{{Op: OpTake, Arg: expr.Const(10)}},
	}
	return m, o, c
}

func TestQueryModel_String(t *testing.T) {
	m, _, _ := ordersQuery()
	assert.Equal(t,
		"from Order o in Orders join Customer c in Customers on [o].CustomerId equals [c].Id "+
			"where ([o].Total > 100) orderby [o].Placed desc select [c].Name => take(10)",
		m.String())
	assert.Equal(t, "{"+m.String()+"}", m.AsSubQuery().String())
}

func TestQueryModel_ExpressionsInClauseOrder(t *testing.T) {
	m, _, _ := ordersQuery()

	var rendered []string
	for _, e := range m.Expressions() {
		rendered = append(rendered, e.String())
	}
	assert.Equal(t, []string{
		"Orders",
		"Customers", "[o].CustomerId", "[c].Id",
		"([o].Total > 100)",
		"[o].Placed",
		"[c].Name",
		"10",
	}, rendered)
}

func TestQueryModel_Sources(t *testing.T) {
	m, o, c := ordersQuery()
	assert.Equal(t, []*expr.QuerySource{o, c}, m.Sources())
}

func TestQueryModel_TransformIdentityReturnsSameModel(t *testing.T) {
	m, _, _ := ordersQuery()
	out, err := m.Transform(func(e expr.Expression) (expr.Expression, error) { return e, nil })
	require.NoError(t, err)
	assert.Same(t, m, out)
}

func TestQueryModel_TransformSharesUnchangedClauses(t *testing.T) {
	m, _, _ := ordersQuery()
	where := m.Body[1].(*WhereClause)

	out, err := m.Transform(func(e expr.Expression) (expr.Expression, error) {
		if e == where.Predicate {
			return expr.Const(true), nil
		}
		return e, nil
	})
	require.NoError(t, err)

	assert.NotSame(t, m, out)
	assert.Same(t, m.MainFrom, out.MainFrom)
	assert.Same(t, m.Body[0], out.Body[0])
	assert.NotSame(t, m.Body[1], out.Body[1])
	assert.Same(t, m.Body[2], out.Body[2])
	assert.Same(t, m.Select, out.Select)
	assert.Equal(t, "where true", out.Body[1].String())
	assert.Equal(t, "where ([o].Total > 100)", m.Body[1].String(), "original untouched")
}

func TestQueryModel_TransformResultOperators(t *testing.T) {
	m, _, _ := ordersQuery()
	out, err := m.Transform(func(e expr.Expression) (expr.Expression, error) {
		if c, ok := e.(*expr.Constant); ok && c.String() == "10" {
			return expr.Const(5), nil
		}
		return e, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "take(5)", out.ResultOperators[0].String())
	assert.Equal(t, "take(10)", m.ResultOperators[0].String())
}

func TestQueryModel_TransformError(t *testing.T) {
	m, _, _ := ordersQuery()
	boom := errors.New("boom")
	calls := 0

	out, err := m.Transform(func(e expr.Expression) (expr.Expression, error) {
		calls++
		if e.String() == "[o].CustomerId" {
			return nil, boom
		}
		return e, nil
	})
	assert.Nil(t, out)
	assert.Same(t, boom, err, "errors from fn are returned unwrapped")
	assert.Equal(t, 3, calls, "no expression visited after the failure")
}

func TestQueryModel_StringWithNilClause(t *testing.T) {
	p := expr.NewQuerySource("p", "Product")
	m := New(p, expr.Const("items"), expr.Ref(p), nil, &WhereClause{Predicate: expr.Const(true)})

	assert.NotPanics(t, func() { _ = m.String() })
	assert.Equal(t, `from Product p in "items" <nil clause> where true select [p]`, m.String())
}

func TestQueryModel_TransformSkipsNilExpressions(t *testing.T) {
	p := expr.NewQuerySource("p", "")
	m := &QueryModel{
		MainFrom:        &MainFromClause{Source: p, FromExpr: expr.Const("items")},
		ResultOperators: []ResultOperator{{Op: OpCount}},
	}
	calls := 0
	out, err := m.Transform(func(e expr.Expression) (expr.Expression, error) {
		calls++
		return e, nil
	})
	require.NoError(t, err)
	assert.Same(t, m, out)
	assert.Equal(t, 1, calls)
}

func TestQueryModel_Clone(t *testing.T) {
	m, o, c := ordersQuery()
	outer := expr.NewQuerySource("outer", "")
	// A nested sub-query referencing both the model's source and an outer one.
	p := expr.NewQuerySource("p", "Line")
	nested := New(p, expr.Member(expr.Ref(o), "Lines"), expr.Ref(outer))
	m.Select = &SelectClause{Selector: nested.AsSubQuery()}

	mapping := rewrite.NewQuerySourceMapping()
	clone, err := m.CloneWith(mapping)
	require.NoError(t, err)

	assert.Equal(t, m.String(), clone.String(), "clone renders identically")
	require.Len(t, clone.Sources(), 2)
	assert.NotSame(t, o, clone.Sources()[0])
	assert.NotSame(t, c, clone.Sources()[1])
	assert.Equal(t, "o", clone.Sources()[0].Name())

	// Every reference to the original sources now points at the fresh ones.
	refs := expr.References(clone.AsSubQuery())
	assert.False(t, slices.Contains(refs, o))
	assert.False(t, slices.Contains(refs, c))
	assert.True(t, slices.Contains(refs, outer), "outer references kept")
	assert.True(t, slices.Contains(refs, clone.Sources()[0]))

	assert.Equal(t, 2, mapping.Len())
	assert.Same(t, clone.Sources()[0], mapping.GetExpression(o).(*expr.QuerySourceReference).Source)

	// The original still references its own sources.
	assert.True(t, slices.Contains(expr.References(m.AsSubQuery()), o))
}

