package rewrite

import (
	"errors"
	"fmt"

	"github.com/roach88/qmx/internal/expr"
)

// Argument and mapping errors.
var (
	// ErrNilExpression is returned when the expression to rewrite (or a
	// mapped replacement) is nil.
	ErrNilExpression = errors.New("nil expression")

	// ErrNilMapping is returned when no mapping is supplied.
	ErrNilMapping = errors.New("nil query source mapping")

	// ErrNilSource is returned when a mapping key is nil.
	ErrNilSource = errors.New("nil query source")

	// ErrDuplicateMapping is returned by AddMapping for a source that is
	// already mapped.
	ErrDuplicateMapping = errors.New("query source already mapped")

	// ErrMissingMapping is returned by ReplaceMapping and RemoveMapping for a
	// source that is not mapped.
	ErrMissingMapping = errors.New("query source not mapped")

	// ErrTooDeep is returned for trees nested deeper than MaxDepth.
	ErrTooDeep = errors.New("expression tree exceeds maximum depth")
)

// UnmappedReferenceError reports a reference to a query source that has no
// mapped expression during a strict rewrite.
type UnmappedReferenceError struct {
	// Source is the unmapped query source.
	Source *expr.QuerySource

	// Name is the item name of Source, kept for messages.
	Name string
}

// Error implements the error interface.
func (e *UnmappedReferenceError) Error() string {
	return fmt.Sprintf("cannot replace reference to query source '%s': no mapped expression", e.Name)
}

// IsUnmappedReference reports whether err is or wraps an
// *UnmappedReferenceError.
func IsUnmappedReference(err error) bool {
	var ure *UnmappedReferenceError
	return errors.As(err, &ure)
}

// UnmappedSource returns the query source named by an
// *UnmappedReferenceError in err's chain, or nil.
func UnmappedSource(err error) *expr.QuerySource {
	var ure *UnmappedReferenceError
	if errors.As(err, &ure) {
		return ure.Source
	}
	return nil
}
