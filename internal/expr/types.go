package expr

import "github.com/roach88/qmx/internal/ir"

// Kind names a node kind. Extension nodes report their own kinds.
type Kind string

// Known node kinds.
const (
	KindConstant    Kind = "constant"
	KindParameter   Kind = "parameter"
	KindMember      Kind = "member"
	KindUnary       Kind = "unary"
	KindBinary      Kind = "binary"
	KindConditional Kind = "conditional"
	KindCall        Kind = "call"
	KindLambda      Kind = "lambda"
	KindNew         Kind = "new"
	KindReference   Kind = "reference"
	KindSubQuery    Kind = "subquery"
)

// Expression is a node of an expression tree.
//
// The interface is open: implementations outside this package are extension
// nodes. Walkers in this package never look inside extension nodes.
type Expression interface {
	Kind() Kind
	String() string
}

// Equaler may be implemented by extension nodes that want structural
// equality instead of identity in Equal.
type Equaler interface {
	Equal(other Expression) bool
}

// IsKnown reports whether e is one of the node kinds defined in this package.
func IsKnown(e Expression) bool {
	switch e.(type) {
	case *Constant, *Parameter, *MemberAccess, *Unary, *Binary, *Conditional,
		*Call, *Lambda, *New, *QuerySourceReference, *SubQuery:
		return true
	default:
		return false
	}
}

// Constant is a literal value.
type Constant struct {
	Value ir.IRValue
	Type  string // optional type name
}

// Parameter is a lambda parameter.
type Parameter struct {
	Name string
	Type string
}

// MemberAccess reads a member (field or property) of Expr.
// Expr is nil for static members.
type MemberAccess struct {
	Expr   Expression
	Member string
}

// Unary applies a unary operator.
type Unary struct {
	Op      UnaryOp
	Operand Expression
}

// Binary applies a binary operator.
type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// Conditional is the ternary test ? IfTrue : IfFalse.
type Conditional struct {
	Test    Expression
	IfTrue  Expression
	IfFalse Expression
}

// Call invokes Method on Object (nil for static calls) with Args.
type Call struct {
	Object Expression
	Method string
	Args   []Expression
}

// Lambda is an anonymous function. Params are declarations, not children.
type Lambda struct {
	Params []*Parameter
	Body   Expression
}

// New constructs a value of Type. When Members is non-empty it names the
// member initialised by the argument at the same index.
type New struct {
	Type    string
	Members []string
	Args    []Expression
}

// QuerySourceReference refers to the current item of a query source.
type QuerySourceReference struct {
	Source *QuerySource
}

// SubQuery embeds a nested query model.
type SubQuery struct {
	Model Model
}

// TransformFunc maps one expression to its replacement.
type TransformFunc func(Expression) (Expression, error)

// Model is the view of a nested query model that expression walkers need.
//
// TransformExpressions must apply fn to every expression the model owns and
// return a new model with the results, leaving the receiver untouched. It
// returns the receiver itself when fn changed nothing.
type Model interface {
	TransformExpressions(fn TransformFunc) (Model, error)
	Expressions() []Expression
	String() string
}

func (*Constant) Kind() Kind             { return KindConstant }
func (*Parameter) Kind() Kind            { return KindParameter }
func (*MemberAccess) Kind() Kind         { return KindMember }
func (*Unary) Kind() Kind                { return KindUnary }
func (*Binary) Kind() Kind               { return KindBinary }
func (*Conditional) Kind() Kind          { return KindConditional }
func (*Call) Kind() Kind                 { return KindCall }
func (*Lambda) Kind() Kind               { return KindLambda }
func (*New) Kind() Kind                  { return KindNew }
func (*QuerySourceReference) Kind() Kind { return KindReference }
func (*SubQuery) Kind() Kind             { return KindSubQuery }

// Const returns a constant node for a Go value accepted by ir.FromAny.
// It panics on unsupported values; use it for literals known to be valid.
func Const(v any) *Constant {
	val, err := ir.FromAny(v)
	if err != nil {
		panic(err)
	}
	return &Constant{Value: val}
}

// Ref returns a reference to src.
func Ref(src *QuerySource) *QuerySourceReference {
	return &QuerySourceReference{Source: src}
}

// Member returns e.name.
func Member(e Expression, name string) *MemberAccess {
	return &MemberAccess{Expr: e, Member: name}
}

// Bin returns left op right.
func Bin(op BinaryOp, left, right Expression) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// Sub wraps m in a sub-query expression.
func Sub(m Model) *SubQuery {
	return &SubQuery{Model: m}
}
