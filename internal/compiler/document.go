package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/qmx/internal/document"
)

// CompileDocument compiles one CUE query document into a document.Document.
//
// The CUE value should be the document struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`query: lines: { sources: o: "Order", input: ref: "o" }`)
//	doc, err := CompileDocument(v.LookupPath(cue.ParsePath("query.lines")))
//
// The document name is the last label of the value's path. Decode errors
// are returned as *CompileError positioned at the offending CUE value.
func CompileDocument(v cue.Value) (*document.Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var name string
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}

	raw, err := toAny(v, "")
	if err != nil {
		return nil, err
	}

	doc, err := document.Decode(name, raw)
	if err != nil {
		if de, ok := document.AsDecodeError(err); ok {
			field := de.Path
			if field == "" {
				field = "document"
			}
			return nil, &CompileError{
				Field:   field,
				Message: de.Message,
				Pos:     lookup(v, de.Path).Pos(),
			}
		}
		return nil, err
	}
	return doc, nil
}
