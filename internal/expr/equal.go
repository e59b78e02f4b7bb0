package expr

import (
	"reflect"
	"slices"

	"github.com/roach88/qmx/internal/ir"
)

// Equal reports whether a and b are structurally equal.
//
// References are equal only when they point at the same query source.
// Sub-queries are equal when their models render identically and their
// expressions are pairwise equal. Extension nodes use Equaler when
// implemented, and reflect.DeepEqual otherwise.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if Same(a, b) {
		return true
	}

	switch x := a.(type) {
	case *Constant:
		y, ok := b.(*Constant)
		return ok && x.Type == y.Type && ir.Equal(x.Value, y.Value)
	case *Parameter:
		y, ok := b.(*Parameter)
		return ok && x.Name == y.Name && x.Type == y.Type
	case *MemberAccess:
		y, ok := b.(*MemberAccess)
		return ok && x.Member == y.Member && Equal(x.Expr, y.Expr)
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Conditional:
		y, ok := b.(*Conditional)
		return ok && Equal(x.Test, y.Test) && Equal(x.IfTrue, y.IfTrue) && Equal(x.IfFalse, y.IfFalse)
	case *Call:
		y, ok := b.(*Call)
		return ok && x.Method == y.Method && Equal(x.Object, y.Object) && equalList(x.Args, y.Args)
	case *Lambda:
		y, ok := b.(*Lambda)
		if !ok || len(x.Params) != len(y.Params) {
			return false
		}
		for i := range x.Params {
			if !Equal(x.Params[i], y.Params[i]) {
				return false
			}
		}
		return Equal(x.Body, y.Body)
	case *New:
		y, ok := b.(*New)
		return ok && x.Type == y.Type && slices.Equal(x.Members, y.Members) && equalList(x.Args, y.Args)
	case *QuerySourceReference:
		y, ok := b.(*QuerySourceReference)
		return ok && x.Source == y.Source
	case *SubQuery:
		y, ok := b.(*SubQuery)
		if !ok {
			return false
		}
		if x.Model == nil || y.Model == nil {
			return x.Model == nil && y.Model == nil
		}
		return x.Model.String() == y.Model.String() &&
			equalList(x.Model.Expressions(), y.Model.Expressions())
	default:
		if eq, ok := a.(Equaler); ok {
			return eq.Equal(b)
		}
		return reflect.DeepEqual(a, b)
	}
}

func equalList(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
