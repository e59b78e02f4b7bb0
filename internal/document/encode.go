package document

import (
	"fmt"

	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/ir"
	"github.com/roach88/qmx/internal/querymodel"
)

// Encode returns the literal form of e. References encode by item name, so
// decoding the result in the same scopes rebuilds a tree with the same
// fingerprint.
//
// Extension nodes other than *Opaque, and sub-queries over models other
// than *querymodel.QueryModel, have no literal form.
func Encode(e expr.Expression) (any, error) {
	switch n := e.(type) {
	case nil:
		return nil, fmt.Errorf("encode: %w", expr.ErrNilNode)
	case *expr.Constant:
		return one("const", ir.ToAny(n.Value)), nil
	case *expr.Parameter:
		return one("param", n.Name), nil
	case *expr.QuerySourceReference:
		return one("ref", n.Source.Name()), nil
	case *expr.MemberAccess:
		body := map[string]any{"name": n.Member}
		if n.Expr != nil {
			inner, err := Encode(n.Expr)
			if err != nil {
				return nil, err
			}
			body["expr"] = inner
		}
		return one("member", body), nil
	case *expr.Unary:
		operand, err := Encode(n.Operand)
		if err != nil {
			return nil, err
		}
		return one("unary", map[string]any{"op": string(n.Op), "operand": operand}), nil
	case *expr.Binary:
		left, err := Encode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := Encode(n.Right)
		if err != nil {
			return nil, err
		}
		return one("binary", map[string]any{"op": string(n.Op), "left": left, "right": right}), nil
	case *expr.Conditional:
		parts, err := encodeAll(n.Test, n.IfTrue, n.IfFalse)
		if err != nil {
			return nil, err
		}
		return one("cond", map[string]any{"test": parts[0], "then": parts[1], "else": parts[2]}), nil
	case *expr.Call:
		body := map[string]any{"method": n.Method}
		if n.Object != nil {
			object, err := Encode(n.Object)
			if err != nil {
				return nil, err
			}
			body["object"] = object
		}
		if len(n.Args) > 0 {
			args, err := encodeAll(n.Args...)
			if err != nil {
				return nil, err
			}
			body["args"] = args
		}
		return one("call", body), nil
	case *expr.Lambda:
		params := make([]any, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Name
		}
		lambdaBody, err := Encode(n.Body)
		if err != nil {
			return nil, err
		}
		return one("lambda", map[string]any{"params": params, "body": lambdaBody}), nil
	case *expr.New:
		body := map[string]any{"type": n.Type}
		if len(n.Members) > 0 {
			members := make([]any, len(n.Members))
			for i, m := range n.Members {
				members[i] = m
			}
			body["members"] = members
		}
		if len(n.Args) > 0 {
			args, err := encodeAll(n.Args...)
			if err != nil {
				return nil, err
			}
			body["args"] = args
		}
		return one("new", body), nil
	case *expr.SubQuery:
		qm, ok := n.Model.(*querymodel.QueryModel)
		if !ok {
			return nil, fmt.Errorf("encode sub-query over %T: %w", n.Model, ErrNotEncodable)
		}
		m, err := EncodeModel(qm)
		if err != nil {
			return nil, err
		}
		return one("subquery", m), nil
	case *Opaque:
		return one("opaque", map[string]any{"dialect": n.Dialect, "text": n.Text}), nil
	default:
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), ErrNotEncodable)
	}
}

// EncodeModel returns the literal form of a query model.
func EncodeModel(m *querymodel.QueryModel) (map[string]any, error) {
	if m.MainFrom == nil || m.Select == nil {
		return nil, fmt.Errorf("encode model: missing from or select clause: %w", ErrNotEncodable)
	}

	from, err := encodeFrom(m.MainFrom.Source, m.MainFrom.FromExpr)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"from": from}

	if len(m.Body) > 0 {
		body := make([]any, len(m.Body))
		for i, clause := range m.Body {
			c, err := encodeClause(clause)
			if err != nil {
				return nil, fmt.Errorf("body[%d]: %w", i, err)
			}
			body[i] = c
		}
		out["body"] = body
	}

	sel, err := Encode(m.Select.Selector)
	if err != nil {
		return nil, err
	}
	out["select"] = sel

	if len(m.ResultOperators) > 0 {
		ops := make([]any, len(m.ResultOperators))
		for i, op := range m.ResultOperators {
			entry := map[string]any{"op": string(op.Op)}
			if key, ok := argKeys[op.Op]; ok && op.Arg != nil {
				arg, err := Encode(op.Arg)
				if err != nil {
					return nil, err
				}
				entry[key] = arg
			}
			ops[i] = entry
		}
		out["result"] = ops
	}
	return out, nil
}

func encodeFrom(src *expr.QuerySource, seq expr.Expression) (map[string]any, error) {
	in, err := Encode(seq)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"name": src.Name(), "in": in}
	if src.ItemType() != "" {
		out["type"] = src.ItemType()
	}
	return out, nil
}

func encodeClause(c querymodel.BodyClause) (any, error) {
	switch c := c.(type) {
	case *querymodel.WhereClause:
		pred, err := Encode(c.Predicate)
		if err != nil {
			return nil, err
		}
		return one("where", pred), nil
	case *querymodel.AdditionalFromClause:
		from, err := encodeFrom(c.Source, c.FromExpr)
		if err != nil {
			return nil, err
		}
		return one("from", from), nil
	case *querymodel.JoinClause:
		join, err := encodeFrom(c.Source, c.InnerSeq)
		if err != nil {
			return nil, err
		}
		keys, err := encodeAll(c.OuterKey, c.InnerKey)
		if err != nil {
			return nil, err
		}
		join["outer"], join["inner"] = keys[0], keys[1]
		return one("join", join), nil
	case *querymodel.OrderByClause:
		orderings := make([]any, len(c.Orderings))
		for i, o := range c.Orderings {
			e, err := Encode(o.Expr)
			if err != nil {
				return nil, err
			}
			orderings[i] = map[string]any{"expr": e, "dir": string(o.Direction)}
		}
		return one("orderby", orderings), nil
	default:
		return nil, fmt.Errorf("encode clause %T: %w", c, ErrNotEncodable)
	}
}

func encodeAll(es ...expr.Expression) ([]any, error) {
	out := make([]any, len(es))
	for i, e := range es {
		enc, err := Encode(e)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

func one(key string, body any) map[string]any {
	return map[string]any{key: body}
}
