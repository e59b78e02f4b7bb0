package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/qmx/internal/document"
	"github.com/roach88/qmx/internal/expr"
)

// ChainWarning reports a mapping whose replacement refers to another mapped
// source. Rewrites are single-pass, so such references survive the rewrite
// unchanged.
type ChainWarning struct {
	Path    []string `json:"path"`    // Source names: ["a", "b"] or a cycle ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" for cycles, "info" for chains
}

// AnalyzeMappingChains inspects the mapping of doc for replacements that
// reference mapped sources.
//
// The algorithm:
//  1. Build a graph: mapped source -> mapped sources its replacement references
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle warning
//  4. Report every remaining edge as an info-level chain
//
// A mapping with no such references returns an empty list. Output order is
// deterministic.
func AnalyzeMappingChains(doc *document.Document) []ChainWarning {
	warnings := []ChainWarning{}
	if doc == nil || doc.Mapping == nil || doc.Mapping.Len() == 0 {
		return warnings
	}

	graph := buildMappingGraph(doc)
	inCycle := make(map[string]bool)

	sccs := tarjanSCC(graph)
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			for _, n := range scc {
				inCycle[n] = true
			}
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	for _, from := range sortedNodes(graph) {
		for _, to := range graph[from] {
			if inCycle[from] && inCycle[to] {
				continue
			}
			warnings = append(warnings, ChainWarning{
				Path:    []string{from, to},
				Message: fmt.Sprintf("Replacement for '%s' refers to mapped source '%s'; it is not substituted again", from, to),
				Level:   "info",
			})
		}
	}
	return warnings
}

// mappingGraph maps a source name to the mapped source names its
// replacement references, sorted.
type mappingGraph map[string][]string

func buildMappingGraph(doc *document.Document) mappingGraph {
	graph := make(mappingGraph)
	for _, src := range doc.Mapping.Sources() {
		edges := []string{}
		for _, ref := range expr.References(doc.Mapping.GetExpression(src)) {
			if doc.Mapping.ContainsMapping(ref) {
				edges = append(edges, ref.Name())
			}
		}
		sort.Strings(edges)
		graph[src.Name()] = edges
	}
	return graph
}

func sortedNodes(graph mappingGraph) []string {
	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

func hasSelfLoop(node string, graph mappingGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are stable.
func tarjanSCC(graph mappingGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range sortedNodes(graph) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, graph mappingGraph) ChainWarning {
	if len(scc) == 1 {
		name := scc[0]
		return ChainWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Replacement for '%s' refers to itself", name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return ChainWarning{
		Path:    path,
		Message: fmt.Sprintf("Mapping cycle: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks from the first (smallest) node of the SCC,
// always taking the first unvisited edge inside the SCC, until it returns
// to a visited node.
func reconstructCyclePath(scc []string, graph mappingGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range graph[current] {
			if !members[w] {
				continue
			}
			if w == start || !visited[w] {
				next = w
				if !visited[w] {
					break
				}
			}
		}
		if next == "" {
			return append(path, start)
		}
		path = append(path, next)
		if visited[next] {
			return path
		}
		visited[next] = true
		current = next
	}
}
