package expr

// BinaryOp is a binary operator.
type BinaryOp string

// Binary operators.
const (
	OpEqual        BinaryOp = "=="
	OpNotEqual     BinaryOp = "!="
	OpLess         BinaryOp = "<"
	OpLessEqual    BinaryOp = "<="
	OpGreater      BinaryOp = ">"
	OpGreaterEqual BinaryOp = ">="
	OpAnd          BinaryOp = "&&"
	OpOr           BinaryOp = "||"
	OpAdd          BinaryOp = "+"
	OpSub          BinaryOp = "-"
	OpMul          BinaryOp = "*"
	OpDiv          BinaryOp = "/"
	OpMod          BinaryOp = "%"
)

// UnaryOp is a unary operator.
type UnaryOp string

// Unary operators.
const (
	OpNot    UnaryOp = "!"
	OpNegate UnaryOp = "-"
)

var binaryOps = map[string]BinaryOp{
	"==": OpEqual, "eq": OpEqual,
	"!=": OpNotEqual, "ne": OpNotEqual,
	"<": OpLess, "lt": OpLess,
	"<=": OpLessEqual, "le": OpLessEqual,
	">": OpGreater, "gt": OpGreater,
	">=": OpGreaterEqual, "ge": OpGreaterEqual,
	"&&": OpAnd, "and": OpAnd,
	"||": OpOr, "or": OpOr,
	"+": OpAdd, "add": OpAdd,
	"-": OpSub, "sub": OpSub,
	"*": OpMul, "mul": OpMul,
	"/": OpDiv, "div": OpDiv,
	"%": OpMod, "mod": OpMod,
}

var unaryOps = map[string]UnaryOp{
	"!": OpNot, "not": OpNot,
	"-": OpNegate, "neg": OpNegate,
}

// ParseBinaryOp resolves an operator symbol or its word alias ("gt", "and").
func ParseBinaryOp(s string) (BinaryOp, bool) {
	op, ok := binaryOps[s]
	return op, ok
}

// ParseUnaryOp resolves "!", "not", "-" or "neg".
func ParseUnaryOp(s string) (UnaryOp, bool) {
	op, ok := unaryOps[s]
	return op, ok
}
