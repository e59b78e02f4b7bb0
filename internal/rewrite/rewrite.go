package rewrite

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/roach88/qmx/internal/expr"
)

// MaxDepth bounds the node depth the rewriter will descend to.
const MaxDepth = 10000

// Replacement describes one substituted reference.
type Replacement struct {
	// Source is the query source whose reference was replaced.
	Source *expr.QuerySource

	// Name is the item name of Source.
	Name string

	// Depth is the sub-query nesting level of the reference: 0 for the
	// top-level tree, 1 inside a sub-query, and so on.
	Depth int
}

// Rewriter substitutes query source references through a mapping.
//
// A Rewriter holds no state between calls and may be reused. It is safe for
// concurrent use when OnReplace is.
type Rewriter struct {
	// Mapping resolves sources to replacement expressions. Required.
	Mapping Mapping

	// Strict makes unmapped references fail with *UnmappedReferenceError.
	Strict bool

	// Logger receives debug events. Nil disables logging.
	Logger *slog.Logger

	// OnReplace, if set, is called for each substituted reference.
	OnReplace func(Replacement)
}

// Rewrite returns e with every reference to a mapped query source replaced by
// its mapped expression, recursing into nested sub-queries.
//
// When strict is true, a reference to an unmapped source fails the whole
// rewrite with *UnmappedReferenceError; otherwise it is left unchanged. No
// partial result is returned on failure and the input is never modified.
func Rewrite(e expr.Expression, m Mapping, strict bool) (expr.Expression, error) {
	r := &Rewriter{Mapping: m, Strict: strict}
	return r.Rewrite(e)
}

// Rewrite rewrites e using the rewriter's configuration.
func (r *Rewriter) Rewrite(e expr.Expression) (expr.Expression, error) {
	if e == nil {
		return nil, ErrNilExpression
	}
	if err := r.checkMapping(); err != nil {
		return nil, err
	}
	w := r.newWalker()
	out, err := w.visit(e)
	if err != nil {
		w.logger.Debug("rewrite failed", "error", err)
		return nil, err
	}
	w.logger.Debug("rewrite complete", "replacements", w.replaced, "changed", !expr.Same(out, e))
	return out, nil
}

// RewriteModel rewrites every expression owned by m, as if m were the model
// of a top-level sub-query. It returns m itself when nothing changed.
func (r *Rewriter) RewriteModel(m expr.Model) (expr.Model, error) {
	if m == nil {
		return nil, ErrNilExpression
	}
	if err := r.checkMapping(); err != nil {
		return nil, err
	}
	w := r.newWalker()
	out, err := m.TransformExpressions(w.visit)
	if err != nil {
		w.logger.Debug("model rewrite failed", "error", err)
		return nil, err
	}
	return out, nil
}

func (r *Rewriter) checkMapping() error {
	if r.Mapping == nil {
		return ErrNilMapping
	}
	if qsm, ok := r.Mapping.(*QuerySourceMapping); ok && qsm == nil {
		return ErrNilMapping
	}
	return nil
}

func (r *Rewriter) newWalker() *walker {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &walker{Rewriter: r, logger: logger}
}

// walker carries the per-call traversal state.
type walker struct {
	*Rewriter
	logger   *slog.Logger
	depth    int // node depth
	level    int // sub-query nesting
	replaced int
}

func (w *walker) visit(e expr.Expression) (expr.Expression, error) {
	w.depth++
	defer func() { w.depth-- }()
	if w.depth > MaxDepth {
		return e, ErrTooDeep
	}

	switch n := e.(type) {
	case *expr.QuerySourceReference:
		return w.replace(n)
	case *expr.SubQuery:
		return w.visitSubQuery(n)
	default:
		if !expr.IsKnown(e) {
			w.logger.Debug("extension node passed through", "kind", e.Kind())
			return e, nil
		}
		return expr.MapChildren(e, w.visit)
	}
}

func (w *walker) replace(ref *expr.QuerySourceReference) (expr.Expression, error) {
	src := ref.Source
	if !w.Mapping.ContainsMapping(src) {
		if w.Strict {
			return ref, &UnmappedReferenceError{Source: src, Name: src.String()}
		}
		return ref, nil
	}

	replacement := w.Mapping.GetExpression(src)
	if replacement == nil {
		return ref, fmt.Errorf("mapping for query source '%s' returned nil: %w", src.String(), ErrNilExpression)
	}

	w.replaced++
	w.logger.Debug("reference replaced",
		"source", src.String(),
		"level", w.level,
		"replacement", expr.Format(replacement),
	)
	if w.OnReplace != nil {
		w.OnReplace(Replacement{Source: src, Name: src.String(), Depth: w.level})
	}
	return replacement, nil
}

func (w *walker) visitSubQuery(sq *expr.SubQuery) (expr.Expression, error) {
	if sq.Model == nil {
		return sq, nil
	}

	w.level++
	defer func() { w.level-- }()

	model, err := sq.Model.TransformExpressions(w.visit)
	if err != nil {
		return sq, err
	}
	if sameModel(model, sq.Model) {
		return sq, nil
	}
	return &expr.SubQuery{Model: model}, nil
}

// sameModel compares pointer models by address and treats anything else as
// changed.
func sameModel(a, b expr.Model) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || ta.Kind() != reflect.Pointer {
		return false
	}
	return a == b
}
