// Package expr provides the expression trees used by query models.
//
// An expression tree is built from pointer nodes that are treated as
// immutable once constructed. Rewrites never modify a node in place; they
// build new parents for the children that changed and share everything else.
//
// KNOWN NODE KINDS:
//
//	Constant              42, "text", null
//	Parameter             x (lambda parameter)
//	MemberAccess          [p].Price
//	Unary                 !x, -x
//	Binary                ([p].Price > 0)
//	Conditional           (test ? a : b)
//	Call                  [p].Name.StartsWith("A")
//	Lambda                x => (x > 1)
//	New                   new Pair(a = [p].Id, b = 1)
//	QuerySourceReference  [p]
//	SubQuery              {from Product p in [o].Lines select [p]}
//
// OPEN NODE SET:
//
// Expression is deliberately not sealed. Other layers may add their own node
// types; this package calls them extension nodes. Every walker in this
// package passes extension nodes through untouched because it cannot know
// their internals:
//
//	switch e := e.(type) {
//	case *Binary:
//	    // known: visit children
//	default:
//	    // extension or leaf: return as-is
//	}
//
// QUERY SOURCES:
//
// A QuerySource is the identity of one from-clause. Two references are equal
// only when they point at the same *QuerySource; item names are for display
// and may repeat across scopes.
//
// SUB-QUERIES:
//
// A SubQuery wraps a nested query model through the Model interface, which
// lets this package walk and transform nested expressions without depending
// on the query model package.
package expr
