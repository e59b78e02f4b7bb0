package querymodel

import (
	"fmt"

	"github.com/roach88/qmx/internal/expr"
	"github.com/roach88/qmx/internal/rewrite"
)

// Clone returns a copy of m whose clauses declare fresh query sources.
// References to m's own sources, including those inside nested sub-queries,
// point at the fresh sources in the copy. References to outer sources are
// kept. Sources declared by nested sub-queries keep their identity.
func (m *QueryModel) Clone() (*QueryModel, error) {
	return m.CloneWith(rewrite.NewQuerySourceMapping())
}

// CloneWith is Clone that records, for each source m declares, a mapping
// from the original source to a reference to its fresh counterpart. Callers
// use the mapping to redirect expressions outside the model.
func (m *QueryModel) CloneWith(mapping *rewrite.QuerySourceMapping) (*QueryModel, error) {
	if mapping == nil {
		return nil, rewrite.ErrNilMapping
	}

	fresh := func(src *expr.QuerySource) (*expr.QuerySource, error) {
		if src == nil {
			return nil, nil
		}
		clone := expr.NewQuerySource(src.Name(), src.ItemType())
		if err := mapping.AddMapping(src, expr.Ref(clone)); err != nil {
			return nil, fmt.Errorf("clone: %w", err)
		}
		return clone, nil
	}

	out := &QueryModel{}
	if m.MainFrom != nil {
		src, err := fresh(m.MainFrom.Source)
		if err != nil {
			return nil, err
		}
		out.MainFrom = &MainFromClause{Source: src, FromExpr: m.MainFrom.FromExpr}
	}

	if m.Body != nil {
		out.Body = make([]BodyClause, len(m.Body))
	}
	for i, clause := range m.Body {
		switch c := clause.(type) {
		case *WhereClause:
			out.Body[i] = &WhereClause{Predicate: c.Predicate}
		case *AdditionalFromClause:
			src, err := fresh(c.Source)
			if err != nil {
				return nil, err
			}
			out.Body[i] = &AdditionalFromClause{Source: src, FromExpr: c.FromExpr}
		case *JoinClause:
			src, err := fresh(c.Source)
			if err != nil {
				return nil, err
			}
			out.Body[i] = &JoinClause{Source: src, InnerSeq: c.InnerSeq, OuterKey: c.OuterKey, InnerKey: c.InnerKey}
		case *OrderByClause:
			orderings := make([]Ordering, len(c.Orderings))
			copy(orderings, c.Orderings)
			out.Body[i] = &OrderByClause{Orderings: orderings}
		}
	}

	if m.Select != nil {
		out.Select = &SelectClause{Selector: m.Select.Selector}
	}
	if m.ResultOperators != nil {
		out.ResultOperators = make([]ResultOperator, len(m.ResultOperators))
		copy(out.ResultOperators, m.ResultOperators)
	}

	r := &rewrite.Rewriter{Mapping: mapping}
	return out.Transform(r.Rewrite)
}
