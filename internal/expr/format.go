package expr

import (
	"strings"

	"github.com/roach88/qmx/internal/ir"
)

// Format renders e, or "<nil>" when e is nil.
func Format(e Expression) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}

func (c *Constant) String() string { return ir.Format(c.Value) }

func (p *Parameter) String() string { return p.Name }

func (m *MemberAccess) String() string {
	if m.Expr == nil {
		return m.Member
	}
	return Format(m.Expr) + "." + m.Member
}

func (u *Unary) String() string {
	return string(u.Op) + Format(u.Operand)
}

func (b *Binary) String() string {
	return "(" + Format(b.Left) + " " + string(b.Op) + " " + Format(b.Right) + ")"
}

func (c *Conditional) String() string {
	return "(" + Format(c.Test) + " ? " + Format(c.IfTrue) + " : " + Format(c.IfFalse) + ")"
}

func (c *Call) String() string {
	var sb strings.Builder
	if c.Object != nil {
		sb.WriteString(Format(c.Object))
		sb.WriteByte('.')
	}
	sb.WriteString(c.Method)
	sb.WriteByte('(')
	sb.WriteString(joinFormatted(c.Args))
	sb.WriteByte(')')
	return sb.String()
}

func (l *Lambda) String() string {
	names := make([]string, len(l.Params))
	for i, p := range l.Params {
		names[i] = p.Name
	}
	head := strings.Join(names, ", ")
	if len(names) != 1 {
		head = "(" + head + ")"
	}
	return head + " => " + Format(l.Body)
}

func (n *New) String() string {
	if len(n.Members) == 0 {
		return "new " + n.Type + "(" + joinFormatted(n.Args) + ")"
	}
	parts := make([]string, len(n.Args))
	for i, arg := range n.Args {
		if i < len(n.Members) {
			parts[i] = n.Members[i] + " = " + Format(arg)
		} else {
			parts[i] = Format(arg)
		}
	}
	return "new " + n.Type + "(" + strings.Join(parts, ", ") + ")"
}

func (r *QuerySourceReference) String() string {
	return "[" + r.Source.String() + "]"
}

func (s *SubQuery) String() string {
	if s.Model == nil {
		return "{}"
	}
	return "{" + s.Model.String() + "}"
}

func joinFormatted(es []Expression) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = Format(e)
	}
	return strings.Join(parts, ", ")
}
