package document

import "github.com/roach88/qmx/internal/expr"

// Opaque is an extension node holding a fragment in a host dialect (a CAML
// filter, a raw SQL snippet). Rewrites pass it through untouched.
type Opaque struct {
	Dialect string
	Text    string
}

// Kind implements expr.Expression.
func (o *Opaque) Kind() expr.Kind { return expr.Kind("opaque:" + o.Dialect) }

func (o *Opaque) String() string { return "<" + o.Dialect + ": " + o.Text + ">" }

// Equal implements expr.Equaler.
func (o *Opaque) Equal(other expr.Expression) bool {
	x, ok := other.(*Opaque)
	return ok && x.Dialect == o.Dialect && x.Text == o.Text
}
