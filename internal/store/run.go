package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Run is one journaled rewrite.
type Run struct {
	ID  string
	Seq int64

	// Document is the document name (CUE entry or scenario name).
	Document string

	// Source is the document literal that was decoded and rewritten.
	Source map[string]any

	Strict bool

	// InputFingerprint identifies the input tree; OutputFingerprint the
	// result, empty when the rewrite failed.
	InputFingerprint  string
	OutputFingerprint string

	// Output is the rendered result, empty when the rewrite failed.
	Output string

	// Error is the rewrite error text, empty on success.
	Error string

	// Replacements lists the substituted references in rewrite order.
	Replacements []Replacement

	EncodingVersion string
	ToolVersion     string
}

// Replacement is one substituted reference of a run.
type Replacement struct {
	Source string
	Depth  int
}

// Failed reports whether the journaled rewrite failed.
func (r Run) Failed() bool { return r.Error != "" }

// marshalSource converts a document literal to JSON TEXT for storage.
// Uses json.Encoder with HTML escaping disabled; map keys come out sorted,
// so equal literals are stored identically.
func marshalSource(src map[string]any) (string, error) {
	if src == nil {
		src = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(src); err != nil {
		return "", fmt.Errorf("marshal source: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// unmarshalSource decodes stored JSON TEXT back into a document literal.
// Numbers decode as json.Number so integers survive exactly; floats are
// left for the document decoder to reject.
func unmarshalSource(data string) (map[string]any, error) {
	if data == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var src map[string]any
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("unmarshal source: %w", err)
	}
	if src == nil {
		src = map[string]any{}
	}
	return src, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
