// Package document converts between expression trees and their literal
// form: nested maps and lists as produced by CUE, YAML or JSON decoders.
//
// Every expression is a map with exactly one key naming its kind:
//
//	{const: 42}
//	{ref: "o"}
//	{member: {expr: {ref: "o"}, name: "Total"}}
//	{binary: {op: ">", left: ..., right: ...}}
//	{subquery: {from: {name: "p", type: "Product", in: ...}, body: [...], select: ...}}
//
// Query source names resolve lexically: the innermost from clause that
// declares the name wins, then the sources declared by the document.
//
// A Document adds the rewrite request around an input tree: the outer
// sources, the mapping (keyed by source name) and the strict flag.
package document
