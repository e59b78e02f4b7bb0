// Package rewrite replaces query source references in expression trees.
//
// Rewrite walks an expression tree and substitutes every reference to a
// mapped query source with the mapped expression. Nested sub-queries are
// rewritten too: every expression their query model owns goes through the
// same substitution, at any depth.
//
// SUBSTITUTION RULES:
//
//  1. A mapped reference becomes the mapped expression, as-is. Mapped
//     expressions are never rescanned, so a mapping whose value references
//     another mapped source is applied exactly once.
//  2. An unmapped reference is left alone in lenient mode and fails with
//     *UnmappedReferenceError in strict mode. Strict mode has no notion of
//     scope: sources a sub-query declares itself need a mapping too, usually
//     to their own reference.
//  3. A sub-query is rebuilt around a new query model when any nested
//     expression changed. The original model is never modified.
//  4. Other known nodes are rebuilt only along paths where a child changed.
//  5. Extension nodes are returned unchanged and never fail.
//
// Example:
//
//	m := rewrite.NewQuerySourceMapping()
//	_ = m.AddMapping(order, expr.Const(42))
//	out, err := rewrite.Rewrite(expr.Ref(order), m, true) // out is the constant 42
package rewrite
