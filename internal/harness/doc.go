// Package harness runs rewrite scenarios as executable contract tests.
//
// # Scenario Format
//
// Scenarios are YAML files. Expressions and models use the literal form of
// package document:
//
//	name: nested_predicate
//	description: "Replacement reaches a predicate inside a sub-query"
//	sources:
//	  a: Product
//	input:
//	  subquery:
//	    from: {name: p, type: Product, in: {param: products}}
//	    body:
//	      - where: {binary: {op: ">", left: {ref: a}, right: {const: 0}}}
//	    select: {ref: p}
//	mapping:
//	  a: {param: x}
//	strict: false
//	expect:
//	  output:
//	    subquery: ...
//
// A scenario declares exactly one of input (an expression) or model (a query
// model, wrapped in a sub-query before rewriting).
//
// # Expectations
//
// The expect block holds exactly one of:
//
//   - output: the expected result tree, compared by fingerprint so source
//     identities built from separate literals match by name
//   - error: a substring the rewrite error must contain
//   - unchanged: the rewriter must return the input tree itself
//
// An optional replacements count checks how many references were substituted.
//
// # Deterministic Traces
//
// Each run records a trace of replacement events stamped by a logical clock
// (testutil.DeterministicClock), so the same scenario always yields the same
// trace. RunWithGolden compares the canonical JSON of that trace against
// testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/nested.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
