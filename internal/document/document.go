package document

import (
	"fmt"
	"sort"

	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/rewrite"
)

// Document is one rewrite request: an input tree, the mapping to apply and
// the strictness policy.
type Document struct {
	// Name identifies the document (CUE entry or scenario name).
	Name string

	// Sources are the outer query sources the input may refer to, sorted by
	// name.
	Sources []*expr.QuerySource

	// Input is the tree to rewrite. A "model" document is wrapped in a
	// sub-query.
	Input expr.Expression

	// Mapping holds the decoded replacements, keyed by source identity.
	Mapping *rewrite.QuerySourceMapping

	// Strict requests failure on unmapped references.
	Strict bool

	// Raw is the literal the document was decoded from.
	Raw map[string]any
}

// Fields accepted at the top level of a document literal.
var documentFields = []string{"sources", "input", "model", "mapping", "strict"}

// Decode builds a Document from its literal form:
//
//	sources: {o: "Order", limit: ""}   # name -> item type
//	input:   <expression>              # or model: <query model>
//	mapping: {o: <expression>}         # name -> replacement
//	strict:  true
//
// Mapping keys name a declared outer source or, failing that, a source
// declared exactly once by a from clause in the input.
func Decode(name string, raw any) (*Document, error) {
	f, err := fieldsOf(raw, "", documentFields...)
	if err != nil {
		return nil, err
	}

	sourceTypes, err := f.object("sources")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(sourceTypes))
	for n := range sourceTypes {
		names = append(names, n)
	}
	sort.Strings(names)

	doc := &Document{Name: name, Raw: f.m}
	for _, n := range names {
		itemType, err := (&fields{m: sourceTypes, path: "sources"}).optionalString(n)
		if err != nil {
			return nil, err
		}
		doc.Sources = append(doc.Sources, expr.NewQuerySource(n, itemType))
	}

	dec := NewDecoder(doc.Sources...)
	_, hasInput := f.m["input"]
	_, hasModel := f.m["model"]
	switch {
	case hasInput && hasModel:
		return nil, errorf("", "document has both %q and %q", "input", "model")
	case hasInput:
		doc.Input, err = dec.expression(f.m["input"], "input")
	case hasModel:
		m, merr := dec.model(f.m["model"], "model")
		if merr == nil {
			doc.Input = m.AsSubQuery()
		}
		err = merr
	default:
		return nil, errorf("", "document needs %q or %q", "input", "model")
	}
	if err != nil {
		return nil, err
	}

	if doc.Strict, err = f.optionalBool("strict"); err != nil {
		return nil, err
	}

	doc.Mapping, err = decodeMapping(f, dec, doc.Sources)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeMapping(f *fields, dec *Decoder, outer []*expr.QuerySource) (*rewrite.QuerySourceMapping, error) {
	entries, err := f.object("mapping")
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Replacements see only the outer sources.
	valueDecoder := NewDecoder(outer...)
	mapping := rewrite.NewQuerySourceMapping()
	for _, k := range keys {
		path := join("mapping", k)
		src, err := resolveMappingKey(k, outer, dec)
		if err != nil {
			return nil, errorf(path, "%v", err)
		}
		e, err := valueDecoder.expression(entries[k], path)
		if err != nil {
			return nil, err
		}
		if err := mapping.AddMapping(src, e); err != nil {
			return nil, errorf(path, "%v", err)
		}
	}
	return mapping, nil
}

func resolveMappingKey(name string, outer []*expr.QuerySource, dec *Decoder) (*expr.QuerySource, error) {
	for _, src := range outer {
		if src.Name() == name {
			return src, nil
		}
	}
	switch declared := dec.Declared(name); len(declared) {
	case 0:
		return nil, fmt.Errorf("unknown query source %q", name)
	case 1:
		return declared[0], nil
	default:
		return nil, fmt.Errorf("query source %q is declared %d times", name, len(declared))
	}
}

// Source returns the outer source with the given name, or nil.
func (d *Document) Source(name string) *expr.QuerySource {
	for _, src := range d.Sources {
		if src.Name() == name {
			return src
		}
	}
	return nil
}

// Rewriter returns a rewriter configured with the document's mapping and
// strictness.
func (d *Document) Rewriter() *rewrite.Rewriter {
	return &rewrite.Rewriter{Mapping: d.Mapping, Strict: d.Strict}
}

// DecodeExpected decodes an expected-output literal against the document's
// outer sources, so references compare by name through fingerprints.
func (d *Document) DecodeExpected(v any) (expr.Expression, error) {
	return NewDecoder(d.Sources...).expression(v, "expect.output")
}
