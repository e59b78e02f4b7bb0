// Package querymodel provides the clause-based query model that sub-query
// expressions embed.
//
// A QueryModel reads like the query it represents:
//
//	from Order o in Orders
//	where ([o].Total > 100)
//	orderby [o].Placed desc
//	select [o].Id
//	=> take(10)
//
// Every clause that introduces an item variable (main from, additional from,
// join) owns a *expr.QuerySource. Expressions anywhere in the model, and in
// nested sub-queries, refer to those sources by identity.
//
// Models are persistent. TransformExpressions builds a new model and shares
// unchanged clauses and all source identities with the original. Clone is the
// one operation that creates fresh source identities.
package querymodel
