package rewrite

import (
	"fmt"

	"github.com/roach88/qmx/internal/expr"
)

// Mapping resolves query sources to replacement expressions.
// The rewriter only reads from it.
type Mapping interface {
	ContainsMapping(src *expr.QuerySource) bool
	GetExpression(src *expr.QuerySource) expr.Expression
}

// QuerySourceMapping maps query sources, by identity, to the expressions
// that replace references to them.
//
// The zero value is an empty mapping. It is not safe for concurrent
// mutation; concurrent reads are fine.
type QuerySourceMapping struct {
	entries map[*expr.QuerySource]expr.Expression
	order   []*expr.QuerySource
}

var _ Mapping = (*QuerySourceMapping)(nil)

// NewQuerySourceMapping returns an empty mapping.
func NewQuerySourceMapping() *QuerySourceMapping {
	return &QuerySourceMapping{entries: make(map[*expr.QuerySource]expr.Expression)}
}

// AddMapping maps src to e. It fails if src is already mapped.
func (m *QuerySourceMapping) AddMapping(src *expr.QuerySource, e expr.Expression) error {
	if err := checkEntry(src, e); err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[*expr.QuerySource]expr.Expression)
	}
	if _, exists := m.entries[src]; exists {
		return fmt.Errorf("add mapping for '%s': %w", src.Name(), ErrDuplicateMapping)
	}
	m.entries[src] = e
	m.order = append(m.order, src)
	return nil
}

// ReplaceMapping changes the expression src maps to. It fails if src is not
// mapped.
func (m *QuerySourceMapping) ReplaceMapping(src *expr.QuerySource, e expr.Expression) error {
	if err := checkEntry(src, e); err != nil {
		return err
	}
	if _, exists := m.entries[src]; !exists {
		return fmt.Errorf("replace mapping for '%s': %w", src.Name(), ErrMissingMapping)
	}
	m.entries[src] = e
	return nil
}

// RemoveMapping deletes the mapping for src. It fails if src is not mapped.
func (m *QuerySourceMapping) RemoveMapping(src *expr.QuerySource) error {
	if _, exists := m.entries[src]; !exists {
		return fmt.Errorf("remove mapping for '%s': %w", src.String(), ErrMissingMapping)
	}
	delete(m.entries, src)
	for i, s := range m.order {
		if s == src {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// ContainsMapping reports whether src is mapped.
func (m *QuerySourceMapping) ContainsMapping(src *expr.QuerySource) bool {
	_, ok := m.entries[src]
	return ok
}

// GetExpression returns the expression src maps to, or nil.
func (m *QuerySourceMapping) GetExpression(src *expr.QuerySource) expr.Expression {
	return m.entries[src]
}

// Len returns the number of mapped sources.
func (m *QuerySourceMapping) Len() int {
	return len(m.entries)
}

// Sources returns the mapped sources in insertion order.
func (m *QuerySourceMapping) Sources() []*expr.QuerySource {
	out := make([]*expr.QuerySource, len(m.order))
	copy(out, m.order)
	return out
}

func checkEntry(src *expr.QuerySource, e expr.Expression) error {
	if src == nil {
		return ErrNilSource
	}
	if e == nil {
		return fmt.Errorf("mapping for '%s': %w", src.Name(), ErrNilExpression)
	}
	return nil
}
