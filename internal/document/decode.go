package document

import (
	"slices"
	"sort"

	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/ir"
	"github.com/roach88/qmx/internal/querymodel"
)

// Decoder turns literals into expression trees, resolving source names
// against a stack of scopes.
//
// Decoders are not safe for concurrent use.
type Decoder struct {
	scopes   [][]*expr.QuerySource // innermost last
	declared map[string][]*expr.QuerySource
}

// NewDecoder returns a decoder whose outermost scope holds outer.
func NewDecoder(outer ...*expr.QuerySource) *Decoder {
	return &Decoder{
		scopes:   [][]*expr.QuerySource{slices.Clone(outer)},
		declared: make(map[string][]*expr.QuerySource),
	}
}

// Declared returns the sources declared by from clauses decoded so far with
// the given item name, in declaration order.
func (d *Decoder) Declared(name string) []*expr.QuerySource {
	return d.declared[name]
}

func (d *Decoder) lookup(name string) *expr.QuerySource {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		scope := d.scopes[i]
		for j := len(scope) - 1; j >= 0; j-- {
			if scope[j].Name() == name {
				return scope[j]
			}
		}
	}
	return nil
}

func (d *Decoder) declare(name, itemType string) *expr.QuerySource {
	src := expr.NewQuerySource(name, itemType)
	top := len(d.scopes) - 1
	d.scopes[top] = append(d.scopes[top], src)
	d.declared[name] = append(d.declared[name], src)
	return src
}

// Expression decodes one expression literal.
func (d *Decoder) Expression(v any) (expr.Expression, error) {
	return d.expression(v, "")
}

// Model decodes one query model literal.
func (d *Decoder) Model(v any) (*querymodel.QueryModel, error) {
	return d.model(v, "")
}

func (d *Decoder) expression(v any, path string) (expr.Expression, error) {
	kind, body, err := single(v, path)
	if err != nil {
		return nil, err
	}
	at := join(path, kind)

	switch kind {
	case "const":
		val, err := ir.FromAny(body)
		if err != nil {
			return nil, errorf(at, "%v", err)
		}
		return &expr.Constant{Value: val}, nil

	case "param":
		name, err := asString(body, at)
		if err != nil {
			return nil, err
		}
		return &expr.Parameter{Name: name}, nil

	case "ref":
		name, err := asString(body, at)
		if err != nil {
			return nil, err
		}
		src := d.lookup(name)
		if src == nil {
			return nil, errorf(at, "unknown query source %q", name)
		}
		return expr.Ref(src), nil

	case "member":
		f, err := fieldsOf(body, at, "expr", "name")
		if err != nil {
			return nil, err
		}
		name, err := f.requiredString("name")
		if err != nil {
			return nil, err
		}
		inner, err := d.optional(f, "expr")
		if err != nil {
			return nil, err
		}
		return &expr.MemberAccess{Expr: inner, Member: name}, nil

	case "unary":
		f, err := fieldsOf(body, at, "op", "operand")
		if err != nil {
			return nil, err
		}
		opName, err := f.requiredString("op")
		if err != nil {
			return nil, err
		}
		op, ok := expr.ParseUnaryOp(opName)
		if !ok {
			return nil, errorf(join(at, "op"), "unknown unary operator %q", opName)
		}
		operand, err := d.required(f, "operand")
		if err != nil {
			return nil, err
		}
		return &expr.Unary{Op: op, Operand: operand}, nil

	case "binary":
		f, err := fieldsOf(body, at, "op", "left", "right")
		if err != nil {
			return nil, err
		}
		opName, err := f.requiredString("op")
		if err != nil {
			return nil, err
		}
		op, ok := expr.ParseBinaryOp(opName)
		if !ok {
			return nil, errorf(join(at, "op"), "unknown binary operator %q", opName)
		}
		left, err := d.required(f, "left")
		if err != nil {
			return nil, err
		}
		right, err := d.required(f, "right")
		if err != nil {
			return nil, err
		}
		return &expr.Binary{Op: op, Left: left, Right: right}, nil

	case "cond":
		f, err := fieldsOf(body, at, "test", "then", "else")
		if err != nil {
			return nil, err
		}
		test, err := d.required(f, "test")
		if err != nil {
			return nil, err
		}
		ifTrue, err := d.required(f, "then")
		if err != nil {
			return nil, err
		}
		ifFalse, err := d.required(f, "else")
		if err != nil {
			return nil, err
		}
		return &expr.Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}, nil

	case "call":
		f, err := fieldsOf(body, at, "object", "method", "args")
		if err != nil {
			return nil, err
		}
		method, err := f.requiredString("method")
		if err != nil {
			return nil, err
		}
		object, err := d.optional(f, "object")
		if err != nil {
			return nil, err
		}
		args, err := d.list(f, "args")
		if err != nil {
			return nil, err
		}
		return &expr.Call{Object: object, Method: method, Args: args}, nil

	case "lambda":
		f, err := fieldsOf(body, at, "params", "body")
		if err != nil {
			return nil, err
		}
		names, err := f.stringList("params")
		if err != nil {
			return nil, err
		}
		params := make([]*expr.Parameter, len(names))
		for i, n := range names {
			params[i] = &expr.Parameter{Name: n}
		}
		lambdaBody, err := d.required(f, "body")
		if err != nil {
			return nil, err
		}
		return &expr.Lambda{Params: params, Body: lambdaBody}, nil

	case "new":
		f, err := fieldsOf(body, at, "type", "members", "args")
		if err != nil {
			return nil, err
		}
		typeName, err := f.requiredString("type")
		if err != nil {
			return nil, err
		}
		members, err := f.stringList("members")
		if err != nil {
			return nil, err
		}
		args, err := d.list(f, "args")
		if err != nil {
			return nil, err
		}
		if len(members) > 0 && len(members) != len(args) {
			return nil, errorf(at, "%d members for %d args", len(members), len(args))
		}
		return &expr.New{Type: typeName, Members: members, Args: args}, nil

	case "subquery":
		m, err := d.model(body, at)
		if err != nil {
			return nil, err
		}
		return m.AsSubQuery(), nil

	case "opaque":
		f, err := fieldsOf(body, at, "dialect", "text")
		if err != nil {
			return nil, err
		}
		dialect, err := f.requiredString("dialect")
		if err != nil {
			return nil, err
		}
		text, err := f.requiredString("text")
		if err != nil {
			return nil, err
		}
		return &Opaque{Dialect: dialect, Text: text}, nil

	default:
		return nil, errorf(path, "unknown expression kind %q", kind)
	}
}

func (d *Decoder) required(f *fields, key string) (expr.Expression, error) {
	v, ok := f.m[key]
	if !ok {
		return nil, errorf(f.path, "missing %q", key)
	}
	return d.expression(v, join(f.path, key))
}

func (d *Decoder) optional(f *fields, key string) (expr.Expression, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	return d.expression(v, join(f.path, key))
}

func (d *Decoder) list(f *fields, key string) ([]expr.Expression, error) {
	items, err := f.list(key)
	if err != nil || items == nil {
		return nil, err
	}
	out := make([]expr.Expression, len(items))
	for i, item := range items {
		e, err := d.expression(item, index(join(f.path, key), i))
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *Decoder) model(v any, path string) (*querymodel.QueryModel, error) {
	f, err := fieldsOf(v, path, "from", "body", "select", "result")
	if err != nil {
		return nil, err
	}

	d.scopes = append(d.scopes, nil)
	defer func() { d.scopes = d.scopes[:len(d.scopes)-1] }()

	m := &querymodel.QueryModel{}

	fromVal, ok := f.m["from"]
	if !ok {
		return nil, errorf(path, "missing %q", "from")
	}
	src, fromExpr, err := d.fromClause(fromVal, join(path, "from"))
	if err != nil {
		return nil, err
	}
	m.MainFrom = &querymodel.MainFromClause{Source: src, FromExpr: fromExpr}

	clauses, err := f.list("body")
	if err != nil {
		return nil, err
	}
	for i, c := range clauses {
		clause, err := d.bodyClause(c, index(join(path, "body"), i))
		if err != nil {
			return nil, err
		}
		m.Body = append(m.Body, clause)
	}

	selector, err := d.required(f, "select")
	if err != nil {
		return nil, err
	}
	m.Select = &querymodel.SelectClause{Selector: selector}

	ops, err := f.list("result")
	if err != nil {
		return nil, err
	}
	for i, op := range ops {
		ro, err := d.resultOperator(op, index(join(path, "result"), i))
		if err != nil {
			return nil, err
		}
		m.ResultOperators = append(m.ResultOperators, ro)
	}
	return m, nil
}

// fromClause decodes {name, type, in}. The sequence is decoded before the
// new source is declared, so it cannot refer to it.
func (d *Decoder) fromClause(v any, path string) (*expr.QuerySource, expr.Expression, error) {
	f, err := fieldsOf(v, path, "name", "type", "in")
	if err != nil {
		return nil, nil, err
	}
	name, err := f.requiredString("name")
	if err != nil {
		return nil, nil, err
	}
	itemType, err := f.optionalString("type")
	if err != nil {
		return nil, nil, err
	}
	seq, err := d.required(f, "in")
	if err != nil {
		return nil, nil, err
	}
	return d.declare(name, itemType), seq, nil
}

func (d *Decoder) bodyClause(v any, path string) (querymodel.BodyClause, error) {
	kind, body, err := single(v, path)
	if err != nil {
		return nil, err
	}
	at := join(path, kind)

	switch kind {
	case "where":
		pred, err := d.expression(body, at)
		if err != nil {
			return nil, err
		}
		return &querymodel.WhereClause{Predicate: pred}, nil

	case "from":
		src, seq, err := d.fromClause(body, at)
		if err != nil {
			return nil, err
		}
		return &querymodel.AdditionalFromClause{Source: src, FromExpr: seq}, nil

	case "join":
		f, err := fieldsOf(body, at, "name", "type", "in", "outer", "inner")
		if err != nil {
			return nil, err
		}
		name, err := f.requiredString("name")
		if err != nil {
			return nil, err
		}
		itemType, err := f.optionalString("type")
		if err != nil {
			return nil, err
		}
		inner, err := d.required(f, "in")
		if err != nil {
			return nil, err
		}
		outerKey, err := d.required(f, "outer")
		if err != nil {
			return nil, err
		}
		src := d.declare(name, itemType)
		innerKey, err := d.required(f, "inner")
		if err != nil {
			return nil, err
		}
		return &querymodel.JoinClause{Source: src, InnerSeq: inner, OuterKey: outerKey, InnerKey: innerKey}, nil

	case "orderby":
		items, ok := body.([]any)
		if !ok {
			return nil, errorf(at, "expected a list of orderings")
		}
		orderings := make([]querymodel.Ordering, len(items))
		for i, item := range items {
			o, err := d.ordering(item, index(at, i))
			if err != nil {
				return nil, err
			}
			orderings[i] = o
		}
		return &querymodel.OrderByClause{Orderings: orderings}, nil

	default:
		return nil, errorf(path, "unknown clause %q", kind)
	}
}

func (d *Decoder) ordering(v any, path string) (querymodel.Ordering, error) {
	f, err := fieldsOf(v, path, "expr", "dir")
	if err != nil {
		return querymodel.Ordering{}, err
	}
	e, err := d.required(f, "expr")
	if err != nil {
		return querymodel.Ordering{}, err
	}
	dir, err := f.optionalString("dir")
	if err != nil {
		return querymodel.Ordering{}, err
	}
	switch querymodel.Direction(dir) {
	case "", querymodel.Ascending:
		return querymodel.Ordering{Expr: e, Direction: querymodel.Ascending}, nil
	case querymodel.Descending:
		return querymodel.Ordering{Expr: e, Direction: querymodel.Descending}, nil
	default:
		return querymodel.Ordering{}, errorf(join(path, "dir"), "unknown direction %q", dir)
	}
}

// argKeys names the argument field of each result operator that takes one.
var argKeys = map[querymodel.ResultOp]string{
	querymodel.OpTake:     "count",
	querymodel.OpSkip:     "count",
	querymodel.OpContains: "item",
}

func (d *Decoder) resultOperator(v any, path string) (querymodel.ResultOperator, error) {
	f, err := fieldsOf(v, path, "op", "count", "item")
	if err != nil {
		return querymodel.ResultOperator{}, err
	}
	name, err := f.requiredString("op")
	if err != nil {
		return querymodel.ResultOperator{}, err
	}
	op := querymodel.ResultOp(name)
	if !op.IsKnown() {
		return querymodel.ResultOperator{}, errorf(join(path, "op"), "unknown result operator %q", name)
	}

	argKey, takesArg := argKeys[op]
	for _, key := range []string{"count", "item"} {
		if _, present := f.m[key]; present && key != argKey {
			return querymodel.ResultOperator{}, errorf(path, "result operator %s does not take %q", op, key)
		}
	}
	if !takesArg {
		return querymodel.ResultOperator{Op: op}, nil
	}
	arg, err := d.required(f, argKey)
	if err != nil {
		return querymodel.ResultOperator{}, err
	}
	return querymodel.ResultOperator{Op: op, Arg: arg}, nil
}

// single unpacks a one-key map literal.
func single(v any, path string) (string, any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", nil, errorf(path, "expected a single-key mapping, got %s", describe(v))
	}
	if len(m) != 1 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", nil, errorf(path, "expected exactly one key, got %v", keys)
	}
	for k, body := range m {
		return k, body, nil
	}
	panic("unreachable")
}
