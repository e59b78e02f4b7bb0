package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
)

// toAny converts a concrete CUE value into the plain Go values the document
// decoder reads: map[string]any, []any, string, int64, bool and nil.
// Floats are rejected so that constants hash identically everywhere.
func toAny(v cue.Value, path string) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("integer out of range: %v", err), Pos: v.Pos()}
		}
		return n, nil
	case cue.StringKind:
		return v.String()
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   path,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for i := 0; iter.Next(); i++ {
			elem, err := toAny(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			label := iter.Label()
			elem, err := toAny(iter.Value(), joinPath(path, label))
			if err != nil {
				return nil, err
			}
			out[label] = elem
		}
		return out, nil
	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func joinPath(path, label string) string {
	if path == "" {
		return label
	}
	return path + "." + label
}

// lookup resolves a decoder path such as "model.body[1].where" below v.
// Labels are taken literally, so keywords like "in" need no quoting.
// It returns the deepest existing value along the path.
func lookup(v cue.Value, path string) cue.Value {
	if path == "" {
		return v
	}
	current := v
	for _, seg := range strings.Split(path, ".") {
		label, indices := splitIndices(seg)
		next := current.LookupPath(cue.MakePath(cue.Str(label)))
		if !next.Exists() {
			return current
		}
		current = next
		for _, i := range indices {
			next = current.LookupPath(cue.MakePath(cue.Index(i)))
			if !next.Exists() {
				return current
			}
			current = next
		}
	}
	return current
}

// splitIndices splits "body[1][2]" into "body" and [1 2].
func splitIndices(seg string) (string, []int) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, nil
	}
	label := seg[:open]
	var indices []int
	for _, part := range strings.Split(seg[open:], "]") {
		part = strings.TrimPrefix(part, "[")
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		indices = append(indices, i)
	}
	return label, indices
}
