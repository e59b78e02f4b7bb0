package querymodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/qmx/internal/expr"
)

// ext is an extension node for validation tests.
type ext struct{}

func (*ext) Kind() expr.Kind { return "caml" }
func (*ext) String() string  { return "<caml>" }

func TestValidate_ClosedModel(t *testing.T) {
	m, _, _ := ordersQuery()
	result := Validate(m)
	assert.True(t, result.IsClosed, "warnings: %v", result.Warnings)
	assert.Empty(t, result.Warnings)
}

func TestValidate_DanglingReference(t *testing.T) {
	m, _, _ := ordersQuery()
	stray := expr.NewQuerySource("stray", "")
	m.Body = append(m.Body, &WhereClause{Predicate: expr.Ref(stray)})

	result := Validate(m)
	assert.False(t, result.IsClosed)
	assert.Equal(t, []string{"reference to query source 'stray' in body[3] where is not in scope"}, result.Warnings)

	assert.True(t, Validate(m, stray).IsClosed, "outer sources are in scope")
}

func TestValidate_SourceUsedBeforeDeclaration(t *testing.T) {
	o := expr.NewQuerySource("o", "")
	m := New(o, expr.Member(expr.Ref(o), "Self"), expr.Ref(o))

	result := Validate(m)
	assert.False(t, result.IsClosed)
	assert.Contains(t, result.Warnings[0], "in main from is not in scope")
}

func TestValidate_JoinInnerKeySeesJoinSource(t *testing.T) {
	o := expr.NewQuerySource("o", "")
	c := expr.NewQuerySource("c", "")
	m := New(o, expr.Const("orders"), expr.Ref(o), &JoinClause{
		Source:   c,
		InnerSeq: expr.Member(expr.Ref(c), "Bad"),
		OuterKey: expr.Ref(o),
		InnerKey: expr.Ref(c),
	})

	result := Validate(m)
	assert.Equal(t, []string{"reference to query source 'c' in body[0] join inner sequence is not in scope"}, result.Warnings)
}

func TestValidate_NestedSubQueryScopes(t *testing.T) {
	o := expr.NewQuerySource("o", "Order")
	p := expr.NewQuerySource("p", "Product")

	inner := New(p, expr.Member(expr.Ref(o), "Lines"), expr.Ref(p),
		&WhereClause{Predicate: expr.Bin(expr.OpGreater, expr.Member(expr.Ref(p), "Price"), expr.Const(0))},
	)
	outer := New(o, expr.Const("orders"), inner.AsSubQuery())
	assert.True(t, Validate(outer).IsClosed)

	// p leaks out of the nested query.
	outer.Body = []BodyClause{&WhereClause{Predicate: expr.Ref(p)}}
	result := Validate(outer)
	assert.False(t, result.IsClosed)
	assert.Len(t, result.Warnings, 1)
}

func TestValidate_StructuralWarnings(t *testing.T) {
	p := expr.NewQuerySource("p", "")
	dup := expr.NewQuerySource("p", "")
	m := &QueryModel{
		MainFrom: &MainFromClause{Source: p, FromExpr: expr.Const("a")},
		Body: []BodyClause{
			&AdditionalFromClause{Source: dup, FromExpr: expr.Const("b")},
			&WhereClause{},
			&OrderByClause{},
		},
		ResultOperators: []ResultOperator{
			{Op: OpTake},
			{Op: OpCount, Arg: expr.Const(1)},
			{Op: "sum"},
		},
	}

	result := Validate(m)
	assert.False(t, result.IsClosed)
	assert.Equal(t, []string{
		"duplicate item name 'p' in one query",
		"nil expression in body[1] where",
		"body[2] orderby has no orderings",
		"missing select clause",
		"result operator take requires an argument",
		"result operator count takes no argument",
		`unknown result operator "sum"`,
	}, result.Warnings)
}

func TestValidate_ShadowingInNestedQueryIsAllowed(t *testing.T) {
	outerP := expr.NewQuerySource("p", "")
	innerP := expr.NewQuerySource("p", "")
	inner := New(innerP, expr.Member(expr.Ref(outerP), "Children"), expr.Ref(innerP))
	outer := New(outerP, expr.Const("roots"), inner.AsSubQuery())

	assert.True(t, Validate(outer).IsClosed)
}

func TestValidate_ExtensionNodes(t *testing.T) {
	p := expr.NewQuerySource("p", "")
	m := New(p, expr.Const("items"), expr.Ref(p), &WhereClause{Predicate: &ext{}})

	result := Validate(m)
	assert.Equal(t, []string{`extension expression kind "caml" in body[0] where - references cannot be verified`}, result.Warnings)
}

func TestValidate_Nil(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.IsClosed)
	assert.Equal(t, []string{"nil query model"}, result.Warnings)

	result = Validate(&QueryModel{})
	assert.Equal(t, []string{"missing main from clause", "missing select clause"}, result.Warnings)
}

func TestFreeSources(t *testing.T) {
	o := expr.NewQuerySource("o", "Order")
	p := expr.NewQuerySource("p", "Product")
	customer := expr.NewQuerySource("customer", "Customer")
	limit := expr.NewQuerySource("limit", "")

	inner := New(p, expr.Member(expr.Ref(o), "Lines"), expr.Ref(p),
		&WhereClause{Predicate: expr.Bin(expr.OpLess, expr.Member(expr.Ref(p), "Price"), expr.Ref(limit))},
	)
	outer := New(o, expr.Member(expr.Ref(customer), "Orders"), inner.AsSubQuery())

	assert.Equal(t, []*expr.QuerySource{customer, limit}, FreeSources(outer))
	assert.Empty(t, FreeSources(New(o, expr.Const("x"), expr.Ref(o))))
}
