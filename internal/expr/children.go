package expr

import "reflect"

// Children returns the structural children of a known node in evaluation
// order. Sub-queries return the expressions of their model. Leaves and
// extension nodes have no children. Nil optional children are skipped.
func Children(e Expression) []Expression {
	switch n := e.(type) {
	case *MemberAccess:
		return nonNil(n.Expr)
	case *Unary:
		return nonNil(n.Operand)
	case *Binary:
		return nonNil(n.Left, n.Right)
	case *Conditional:
		return nonNil(n.Test, n.IfTrue, n.IfFalse)
	case *Call:
		return append(nonNil(n.Object), nonNil(n.Args...)...)
	case *Lambda:
		return nonNil(n.Body)
	case *New:
		return nonNil(n.Args...)
	case *SubQuery:
		if n.Model == nil {
			return nil
		}
		return nonNil(n.Model.Expressions()...)
	default:
		return nil
	}
}

func nonNil(es ...Expression) []Expression {
	out := make([]Expression, 0, len(es))
	for _, e := range es {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// MapChildren applies fn to every structural child of a known node and
// returns a node with the results.
//
// Parents are rebuilt only when a child changed; otherwise e itself is
// returned. Leaves, sub-queries and extension nodes are returned as-is:
// sub-query handling is left to the caller. Nil optional children are not
// passed to fn. The first error from fn aborts the mapping.
func MapChildren(e Expression, fn TransformFunc) (Expression, error) {
	switch n := e.(type) {
	case *MemberAccess:
		inner, changed, err := mapOne(n.Expr, fn)
		if err != nil || !changed {
			return e, err
		}
		return &MemberAccess{Expr: inner, Member: n.Member}, nil

	case *Unary:
		operand, changed, err := mapOne(n.Operand, fn)
		if err != nil || !changed {
			return e, err
		}
		return &Unary{Op: n.Op, Operand: operand}, nil

	case *Binary:
		left, lc, err := mapOne(n.Left, fn)
		if err != nil {
			return e, err
		}
		right, rc, err := mapOne(n.Right, fn)
		if err != nil {
			return e, err
		}
		if !lc && !rc {
			return e, nil
		}
		return &Binary{Op: n.Op, Left: left, Right: right}, nil

	case *Conditional:
		test, tc, err := mapOne(n.Test, fn)
		if err != nil {
			return e, err
		}
		ifTrue, ac, err := mapOne(n.IfTrue, fn)
		if err != nil {
			return e, err
		}
		ifFalse, bc, err := mapOne(n.IfFalse, fn)
		if err != nil {
			return e, err
		}
		if !tc && !ac && !bc {
			return e, nil
		}
		return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}, nil

	case *Call:
		object, oc, err := mapOne(n.Object, fn)
		if err != nil {
			return e, err
		}
		args, ac, err := mapList(n.Args, fn)
		if err != nil {
			return e, err
		}
		if !oc && !ac {
			return e, nil
		}
		return &Call{Object: object, Method: n.Method, Args: args}, nil

	case *Lambda:
		body, changed, err := mapOne(n.Body, fn)
		if err != nil || !changed {
			return e, err
		}
		return &Lambda{Params: n.Params, Body: body}, nil

	case *New:
		args, changed, err := mapList(n.Args, fn)
		if err != nil || !changed {
			return e, err
		}
		return &New{Type: n.Type, Members: n.Members, Args: args}, nil

	default:
		return e, nil
	}
}

func mapOne(e Expression, fn TransformFunc) (Expression, bool, error) {
	if e == nil {
		return nil, false, nil
	}
	out, err := fn(e)
	if err != nil {
		return e, false, err
	}
	return out, !Same(out, e), nil
}

// mapList returns the original slice when no element changed.
func mapList(list []Expression, fn TransformFunc) ([]Expression, bool, error) {
	var out []Expression
	for i, e := range list {
		mapped, changed, err := mapOne(e, fn)
		if err != nil {
			return list, false, err
		}
		if changed && out == nil {
			out = make([]Expression, len(list))
			copy(out, list[:i])
		}
		if out != nil {
			out[i] = mapped
		}
	}
	if out == nil {
		return list, false, nil
	}
	return out, true, nil
}

// Same reports whether a and b are the same node.
//
// Pointer nodes are compared by address. Extension nodes with non-pointer
// dynamic types are never considered the same, since comparing them with ==
// may panic; callers then rebuild the parent, which is always correct.
func Same(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || ta.Kind() != reflect.Pointer {
		return false
	}
	return a == b
}
