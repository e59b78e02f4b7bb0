package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/querymodel"
	"github.com/roach88/qmx/internal/rewrite"
	"github.com/roach88/qmx/internal/testutil"
)

func TestDecode_ExpressionDocument(t *testing.T) {
	doc, err := Decode("simple", testutil.YAML(t, `
sources: {sourceA: Order, sourceB: Order}
input:
  binary: {op: "+", left: {ref: sourceA}, right: {ref: sourceB}}
mapping:
  sourceA: {const: 42}
strict: true
`))
	require.NoError(t, err)

	assert.Equal(t, "simple", doc.Name)
	require.Len(t, doc.Sources, 2)
	assert.Equal(t, "sourceA", doc.Sources[0].Name())
	assert.Equal(t, "Order", doc.Sources[0].ItemType())
	assert.True(t, doc.Strict)
	assert.Equal(t, "([sourceA] + [sourceB])", doc.Input.String())

	refs := expr.References(doc.Input)
	assert.Same(t, doc.Source("sourceA"), refs[0])
	assert.True(t, doc.Mapping.ContainsMapping(doc.Source("sourceA")))
	assert.False(t, doc.Mapping.ContainsMapping(doc.Source("sourceB")))
	assert.Nil(t, doc.Source("nope"))
}

func TestDecode_ModelDocument(t *testing.T) {
	doc, err := Decode("lines", testutil.YAML(t, `
sources: {o: Order}
model:
  from: {name: p, type: Product, in: {member: {expr: {ref: o}, name: Lines}}}
  body:
    - where: {binary: {op: gt, left: {member: {expr: {ref: p}, name: Price}}, right: {const: 0}}}
    - orderby: [{expr: {member: {expr: {ref: p}, name: Name}}, dir: desc}]
  select: {ref: p}
  result: [{op: take, count: {const: 5}}, {op: count}]
mapping:
  o: {member: {name: CurrentOrder}}
`))
	require.NoError(t, err)

	sq, ok := doc.Input.(*expr.SubQuery)
	require.True(t, ok)
	assert.Equal(t,
		"from Product p in [o].Lines where ([p].Price > 0) orderby [p].Name desc select [p] => take(5) => count()",
		sq.Model.String())
	assert.True(t, querymodel.Validate(sq.Model.(*querymodel.QueryModel), doc.Sources...).IsClosed)

	out, err := doc.Rewriter().Rewrite(doc.Input)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "from Product p in CurrentOrder.Lines")
}

func TestDecode_AllExpressionKinds(t *testing.T) {
	doc, err := Decode("kinds", testutil.YAML(t, `
sources: {o: Order}
input:
  cond:
    test: {unary: {op: not, operand: {member: {expr: {ref: o}, name: Closed}}}}
    then:
      call:
        object: {member: {expr: {ref: o}, name: Lines}}
        method: Any
        args: [{lambda: {params: [l], body: {binary: {op: ">", left: {member: {expr: {param: l}, name: Qty}}, right: {const: 1}}}}}]
    else:
      new: {type: Summary, members: [id, note], args: [{member: {expr: {ref: o}, name: Id}}, {opaque: {dialect: caml, text: "<IsNull/>"}}]}
`))
	require.NoError(t, err)
	assert.Equal(t,
		"(![o].Closed ? [o].Lines.Any(l => (l.Qty > 1)) : new Summary(id = [o].Id, note = <caml: <IsNull/>>))",
		doc.Input.String())
}

func TestDecode_LexicalScoping(t *testing.T) {
	// The inner "p" shadows the outer one; the inner from sequence still
	// sees the outer "p" because it is decoded before the declaration.
	doc, err := Decode("shadow", testutil.YAML(t, `
model:
  from: {name: p, in: {const: roots}}
  select:
    subquery:
      from: {name: p, in: {member: {expr: {ref: p}, name: Children}}}
      select: {ref: p}
`))
	require.NoError(t, err)

	outer := doc.Input.(*expr.SubQuery).Model.(*querymodel.QueryModel)
	inner := outer.Select.Selector.(*expr.SubQuery).Model.(*querymodel.QueryModel)

	outerP := outer.MainFrom.Source
	innerP := inner.MainFrom.Source
	assert.NotSame(t, outerP, innerP)
	assert.Same(t, outerP, inner.MainFrom.FromExpr.(*expr.MemberAccess).Expr.(*expr.QuerySourceReference).Source)
	assert.Same(t, innerP, inner.Select.Selector.(*expr.QuerySourceReference).Source)
}

func TestDecode_JoinScoping(t *testing.T) {
	doc, err := Decode("join", testutil.YAML(t, `
model:
  from: {name: o, type: Order, in: {const: orders}}
  body:
    - join: {name: c, type: Customer, in: {const: customers}, outer: {member: {expr: {ref: o}, name: CustomerId}}, inner: {member: {expr: {ref: c}, name: Id}}}
  select: {ref: c}
`))
	require.NoError(t, err)
	m := doc.Input.(*expr.SubQuery).Model.(*querymodel.QueryModel)
	assert.True(t, querymodel.Validate(m).IsClosed)

	_, err = Decode("join", testutil.YAML(t, `
model:
  from: {name: o, in: {const: orders}}
  body:
    - join: {name: c, in: {const: customers}, outer: {ref: c}, inner: {ref: c}}
  select: {ref: c}
`))
	de, ok := AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "model.body[0].join.outer.ref", de.Path)
}

func TestDecode_MappingKeyForInnerSource(t *testing.T) {
	doc, err := Decode("inner", testutil.YAML(t, `
model:
  from: {name: p, in: {const: items}}
  select: {member: {expr: {ref: p}, name: Id}}
mapping:
  p: {param: item}
`))
	require.NoError(t, err)

	out, err := doc.Rewriter().Rewrite(doc.Input)
	require.NoError(t, err)
	assert.Equal(t, `{from p in "items" select item.Id}`, out.String())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		path    string
		message string
	}{
		{"unknown top-level field", `{input: {const: 1}, extra: 1}`, "", `unknown field "extra"`},
		{"no input", `{strict: true}`, "", `document needs "input" or "model"`},
		{"input and model", `{input: {const: 1}, model: {}}`, "", `document has both "input" and "model"`},
		{"unknown kind", `{input: {lambda2: {}}}`, "input", `unknown expression kind "lambda2"`},
		{"two keys", `{input: {const: 1, ref: a}}`, "input", "expected exactly one key, got [const ref]"},
		{"not a mapping", `{input: 3}`, "input", "expected a single-key mapping, got int"},
		{"unknown source", `{input: {ref: ghost}}`, "input.ref", `unknown query source "ghost"`},
		{"float constant", `{input: {const: 1.5}}`, "input.const", "float constants are not supported: 1.5"},
		{"bad operator", `{input: {binary: {op: "**", left: {const: 1}, right: {const: 2}}}}`, "input.binary.op", `unknown binary operator "**"`},
		{"missing operand", `{input: {unary: {op: "!"}}}`, "input.unary", `missing "operand"`},
		{"unknown member field", `{input: {member: {name: X, typo: 1}}}`, "input.member", `unknown field "typo"`},
		{"members and args mismatch", `{input: {new: {type: P, members: [a, b], args: [{const: 1}]}}}`, "input.new", "2 members for 1 args"},
		{"model without select", `{model: {from: {name: p, in: {const: x}}}}`, "model", `missing "select"`},
		{"unknown clause", `{model: {from: {name: p, in: {const: x}}, body: [{having: {const: true}}], select: {ref: p}}}`, "model.body[0]", `unknown clause "having"`},
		{"bad direction", `{model: {from: {name: p, in: {const: x}}, body: [{orderby: [{expr: {ref: p}, dir: up}]}], select: {ref: p}}}`, "model.body[0].orderby[0].dir", `unknown direction "up"`},
		{"result op missing arg", `{model: {from: {name: p, in: {const: x}}, select: {ref: p}, result: [{op: take}]}}`, "model.result[0]", `missing "count"`},
		{"result op wrong arg", `{model: {from: {name: p, in: {const: x}}, select: {ref: p}, result: [{op: count, item: {const: 1}}]}}`, "model.result[0]", `result operator count does not take "item"`},
		{"unknown result op", `{model: {from: {name: p, in: {const: x}}, select: {ref: p}, result: [{op: sum}]}}`, "model.result[0].op", `unknown result operator "sum"`},
		{"mapping unknown source", `{input: {const: 1}, mapping: {ghost: {const: 1}}}`, "mapping.ghost", `unknown query source "ghost"`},
		{"mapping value sees only outer sources", `{model: {from: {name: p, in: {const: x}}, select: {ref: p}}, mapping: {p: {ref: p}}}`, "mapping.p.ref", `unknown query source "p"`},
		{"ambiguous mapping key", `{model: {from: {name: p, in: {const: x}}, select: {subquery: {from: {name: p, in: {const: y}}, select: {ref: p}}}}, mapping: {p: {const: 1}}}`, "mapping.p", `query source "p" is declared 2 times`},
		{"strict not bool", `{input: {const: 1}, strict: "yes"}`, "strict", "expected a bool, got string"},
		{"empty name", `{input: {member: {name: ""}}}`, "input.member.name", "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.name, testutil.YAML(t, tt.src))
			require.Error(t, err)
			de, ok := AsDecodeError(err)
			require.True(t, ok, "error %v is not a DecodeError", err)
			assert.Equal(t, tt.path, de.Path)
			assert.Equal(t, tt.message, de.Message)
		})
	}
}

func TestDecodeError_Message(t *testing.T) {
	assert.Equal(t, "input.ref: unknown", (&DecodeError{Path: "input.ref", Message: "unknown"}).Error())
	assert.Equal(t, "unknown", (&DecodeError{Message: "unknown"}).Error())
}

func TestEncode_RoundTrip(t *testing.T) {
	literal := `
sources: {o: Order}
model:
  from: {name: p, type: Product, in: {member: {expr: {ref: o}, name: Lines}}}
  body:
    - from: {name: t, in: {member: {expr: {ref: p}, name: Tags}}}
    - join: {name: s, type: Supplier, in: {const: suppliers}, outer: {member: {expr: {ref: p}, name: SupplierId}}, inner: {member: {expr: {ref: s}, name: Id}}}
    - where:
        cond:
          test: {binary: {op: "&&", left: {unary: {op: "-", operand: {const: 1}}}, right: {const: true}}}
          then: {call: {method: Contains, object: {ref: t}, args: [{const: "x"}]}}
          else: {const: null}
    - orderby: [{expr: {ref: t}}, {expr: {ref: s}, dir: desc}]
  select:
    new:
      type: Row
      members: [p, f]
      args:
        - {ref: p}
        - {lambda: {params: [a, b], body: {binary: {op: "%", left: {param: a}, right: {param: b}}}}}
  result: [{op: skip, count: {const: 2}}, {op: contains, item: {opaque: {dialect: sql, text: "1=1"}}}, {op: distinct}]
`
	doc, err := Decode("roundtrip", testutil.YAML(t, literal))
	require.NoError(t, err)

	encoded, err := Encode(doc.Input)
	require.NoError(t, err)

	again, err := NewDecoder(doc.Sources...).Expression(encoded)
	require.NoError(t, err)

	want, err := expr.Fingerprint(doc.Input)
	require.NoError(t, err)
	got, err := expr.Fingerprint(again)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, doc.Input.String(), again.String())
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, expr.ErrNilNode)

	_, err = Encode(expr.Sub(&querymodel.QueryModel{}))
	assert.ErrorIs(t, err, ErrNotEncodable)
}

func TestOpaque_PassesThroughRewrite(t *testing.T) {
	op := &Opaque{Dialect: "caml", Text: "<Eq/>"}
	assert.Equal(t, expr.Kind("opaque:caml"), op.Kind())
	assert.False(t, expr.IsKnown(op))
	assert.True(t, expr.Equal(op, &Opaque{Dialect: "caml", Text: "<Eq/>"}))

	out, err := rewrite.Rewrite(op, rewrite.NewQuerySourceMapping(), true)
	require.NoError(t, err)
	assert.Same(t, op, out)
}

func TestDocument_DecodeExpected(t *testing.T) {
	doc, err := Decode("expected", testutil.YAML(t, `{sources: {b: ""}, input: {ref: b}}`))
	require.NoError(t, err)

	e, err := doc.DecodeExpected(map[string]any{"ref": "b"})
	require.NoError(t, err)
	assert.True(t, expr.Equal(doc.Input, e), "outer sources are shared")

	_, err = doc.DecodeExpected(map[string]any{"ref": "zz"})
	de, ok := AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "expect.output.ref", de.Path)
}
