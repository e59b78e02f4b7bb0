package querymodel

import (
	"strings"

	"github.com/roach88/qmx/internal/expr"
)

// BodyClause is a clause between the main from clause and the select
// clause.
//
// This is a sealed interface - only clause types in this package implement
// it, so type switches over body clauses are exhaustive.
type BodyClause interface {
	bodyClause() // Marker method - seals interface to this package
	String() string
}

// MainFromClause introduces the primary item variable: from Source in FromExpr.
type MainFromClause struct {
	Source   *expr.QuerySource
	FromExpr expr.Expression
}

// AdditionalFromClause introduces a further item variable (a cross product
// or flattening of a nested sequence).
type AdditionalFromClause struct {
	Source   *expr.QuerySource
	FromExpr expr.Expression
}

// WhereClause filters items by Predicate.
type WhereClause struct {
	Predicate expr.Expression
}

// JoinClause introduces an item variable from InnerSeq, matched where
// OuterKey equals InnerKey. InnerKey may refer to Source.
type JoinClause struct {
	Source   *expr.QuerySource
	InnerSeq expr.Expression
	OuterKey expr.Expression
	InnerKey expr.Expression
}

// Direction is an ordering direction.
type Direction string

// Ordering directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Ordering is one key of an orderby clause.
type Ordering struct {
	Expr      expr.Expression
	Direction Direction
}

// OrderByClause sorts items by Orderings, first key first.
type OrderByClause struct {
	Orderings []Ordering
}

// SelectClause projects each item through Selector.
type SelectClause struct {
	Selector expr.Expression
}

func (*AdditionalFromClause) bodyClause() {}
func (*WhereClause) bodyClause()          {}
func (*JoinClause) bodyClause()           {}
func (*OrderByClause) bodyClause()        {}

func (c *MainFromClause) String() string {
	return "from " + sourceDecl(c.Source) + " in " + expr.Format(c.FromExpr)
}

func (c *AdditionalFromClause) String() string {
	return "from " + sourceDecl(c.Source) + " in " + expr.Format(c.FromExpr)
}

func (c *WhereClause) String() string {
	return "where " + expr.Format(c.Predicate)
}

func (c *JoinClause) String() string {
	return "join " + sourceDecl(c.Source) + " in " + expr.Format(c.InnerSeq) +
		" on " + expr.Format(c.OuterKey) + " equals " + expr.Format(c.InnerKey)
}

func (c *OrderByClause) String() string {
	parts := make([]string, len(c.Orderings))
	for i, o := range c.Orderings {
		parts[i] = expr.Format(o.Expr)
		if o.Direction == Descending {
			parts[i] += " desc"
		}
	}
	return "orderby " + strings.Join(parts, ", ")
}

func (c *SelectClause) String() string {
	return "select " + expr.Format(c.Selector)
}

func sourceDecl(src *expr.QuerySource) string {
	if src == nil {
		return "<nil source>"
	}
	if src.ItemType() == "" {
		return src.Name()
	}
	return src.ItemType() + " " + src.Name()
}

// ResultOp names a result operator.
type ResultOp string

// Result operators.
const (
	OpCount    ResultOp = "count"
	OpFirst    ResultOp = "first"
	OpSingle   ResultOp = "single"
	OpAny      ResultOp = "any"
	OpDistinct ResultOp = "distinct"
	OpTake     ResultOp = "take"
	OpSkip     ResultOp = "skip"
	OpContains ResultOp = "contains"
)

// argOps are the result operators that take one argument expression.
var argOps = map[ResultOp]bool{OpTake: true, OpSkip: true, OpContains: true}

var knownOps = map[ResultOp]bool{
	OpCount: true, OpFirst: true, OpSingle: true, OpAny: true, OpDistinct: true,
	OpTake: true, OpSkip: true, OpContains: true,
}

// TakesArg reports whether op requires an argument expression.
func (op ResultOp) TakesArg() bool { return argOps[op] }

// IsKnown reports whether op is one of the defined result operators.
func (op ResultOp) IsKnown() bool { return knownOps[op] }

// ResultOperator is applied to the query's result sequence. Arg is the count
// for take and skip and the item for contains; nil for the others.
type ResultOperator struct {
	Op  ResultOp
	Arg expr.Expression
}

func (r ResultOperator) String() string {
	if r.Arg == nil {
		return string(r.Op) + "()"
	}
	return string(r.Op) + "(" + expr.Format(r.Arg) + ")"
}
