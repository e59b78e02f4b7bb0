package expr

import (
	"errors"
	"fmt"

	"github.com/roach88/qmx/internal/ir"
)

// ErrNilNode is returned by Fingerprint when a required child is nil.
var ErrNilNode = errors.New("nil expression node")

// Fingerprint returns a content hash of e that is independent of query
// source identity: references are encoded by item name and type. Trees built
// from separate documents fingerprint identically when they render the same
// structure.
func Fingerprint(e Expression) (string, error) {
	enc, err := encode(e)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return ir.Hash(ir.DomainExpression, enc)
}

// encode builds the identity-free canonical form of e.
func encode(e Expression) (ir.IRObject, error) {
	if e == nil {
		return nil, ErrNilNode
	}

	obj := ir.IRObject{"kind": ir.IRString(e.Kind())}
	switch n := e.(type) {
	case *Constant:
		// JSON text keeps null constants representable; canonical JSON has no null.
		data, err := ir.MarshalIRValue(orNull(n.Value))
		if err != nil {
			return nil, err
		}
		obj["value"] = ir.IRString(data)
		setString(obj, "type", n.Type)
	case *Parameter:
		obj["name"] = ir.IRString(n.Name)
		setString(obj, "type", n.Type)
	case *MemberAccess:
		obj["member"] = ir.IRString(n.Member)
		if n.Expr != nil {
			inner, err := encode(n.Expr)
			if err != nil {
				return nil, fmt.Errorf("member %s: %w", n.Member, err)
			}
			obj["expr"] = inner
		}
	case *Unary:
		obj["op"] = ir.IRString(n.Op)
		if err := setChild(obj, "operand", n.Operand); err != nil {
			return nil, err
		}
	case *Binary:
		obj["op"] = ir.IRString(n.Op)
		if err := setChild(obj, "left", n.Left); err != nil {
			return nil, err
		}
		if err := setChild(obj, "right", n.Right); err != nil {
			return nil, err
		}
	case *Conditional:
		for _, c := range []struct {
			key string
			e   Expression
		}{{"test", n.Test}, {"then", n.IfTrue}, {"else", n.IfFalse}} {
			if err := setChild(obj, c.key, c.e); err != nil {
				return nil, err
			}
		}
	case *Call:
		obj["method"] = ir.IRString(n.Method)
		if n.Object != nil {
			if err := setChild(obj, "object", n.Object); err != nil {
				return nil, err
			}
		}
		args, err := encodeList(n.Args)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", n.Method, err)
		}
		obj["args"] = args
	case *Lambda:
		params := make(ir.IRArray, len(n.Params))
		for i, p := range n.Params {
			params[i] = ir.IRString(p.Name)
		}
		obj["params"] = params
		if err := setChild(obj, "body", n.Body); err != nil {
			return nil, err
		}
	case *New:
		obj["type"] = ir.IRString(n.Type)
		members := make(ir.IRArray, len(n.Members))
		for i, m := range n.Members {
			members[i] = ir.IRString(m)
		}
		obj["members"] = members
		args, err := encodeList(n.Args)
		if err != nil {
			return nil, fmt.Errorf("new %s: %w", n.Type, err)
		}
		obj["args"] = args
	case *QuerySourceReference:
		if n.Source == nil {
			return nil, fmt.Errorf("reference: %w", ErrNilNode)
		}
		obj["source"] = ir.IRString(n.Source.Name())
		setString(obj, "item_type", n.Source.ItemType())
	case *SubQuery:
		if n.Model == nil {
			return nil, fmt.Errorf("subquery: %w", ErrNilNode)
		}
		obj["model"] = ir.IRString(n.Model.String())
		exprs, err := encodeList(n.Model.Expressions())
		if err != nil {
			return nil, fmt.Errorf("subquery: %w", err)
		}
		obj["expressions"] = exprs
	default:
		obj["extension"] = ir.IRString(fmt.Sprintf("%T", e))
		obj["text"] = ir.IRString(e.String())
	}
	return obj, nil
}

func encodeList(es []Expression) (ir.IRArray, error) {
	out := make(ir.IRArray, len(es))
	for i, e := range es {
		enc, err := encode(e)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func setChild(obj ir.IRObject, key string, e Expression) error {
	enc, err := encode(e)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	obj[key] = enc
	return nil
}

func setString(obj ir.IRObject, key, value string) {
	if value != "" {
		obj[key] = ir.IRString(value)
	}
}

func orNull(v ir.IRValue) ir.IRValue {
	if v == nil {
		return ir.IRNull{}
	}
	return v
}
