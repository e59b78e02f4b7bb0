package expr

// Inspect walks e in pre-order, descending into sub-query models.
// If fn returns false the children of that node are skipped.
func Inspect(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, child := range Children(e) {
		Inspect(child, fn)
	}
}

// References returns the distinct query sources referenced by e, including
// references inside nested sub-queries, in order of first appearance.
func References(e Expression) []*QuerySource {
	var out []*QuerySource
	seen := make(map[*QuerySource]bool)
	Inspect(e, func(n Expression) bool {
		if ref, ok := n.(*QuerySourceReference); ok && ref.Source != nil && !seen[ref.Source] {
			seen[ref.Source] = true
			out = append(out, ref.Source)
		}
		return true
	})
	return out
}

// Depth returns the height of e: 1 for a leaf, plus one per level of
// nesting. Expressions of a sub-query model count one level below the
// sub-query node.
func Depth(e Expression) int {
	if e == nil {
		return 0
	}
	maxChild := 0
	for _, child := range Children(e) {
		if d := Depth(child); d > maxChild {
			maxChild = d
		}
	}
	return maxChild + 1
}

// Count returns the number of nodes in e, including nested sub-queries.
func Count(e Expression) int {
	n := 0
	Inspect(e, func(Expression) bool {
		n++
		return true
	})
	return n
}
