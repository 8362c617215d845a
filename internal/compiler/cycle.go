package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/lps/internal/ir"
)

// RecursionWarning reports a group of definitions that call each other.
//
// Recursion is legal (list walking, transitive closure) but unbounded
// recursion is cut off by the query depth limit at run time, so it is
// surfaced at compile time.
type RecursionWarning struct {
	Path    []string `json:"path"`    // ["reach/2", "reach/2"]
	Message string   `json:"message"`
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeRecursion finds recursive definitions.
//
// The algorithm:
//  1. Build predicate -> predicate edges from each clause head to the
//     defined predicates in its body (negations included)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// Output is sorted by the first predicate of each path.
func AnalyzeRecursion(clauses []ir.Clause) []RecursionWarning {
	graph := buildDependencyGraph(clauses)
	if len(graph) == 0 {
		return []RecursionWarning{}
	}

	warnings := []RecursionWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b RecursionWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// dependencyGraph maps predicate id -> defined predicate ids it calls.
type dependencyGraph map[string][]string

func buildDependencyGraph(clauses []ir.Clause) dependencyGraph {
	defined := make(map[string]bool)
	for _, c := range clauses {
		if id, ok := headID(c); ok && !c.IsFact() {
			defined[id] = true
		}
	}

	graph := make(dependencyGraph)
	for _, c := range clauses {
		id, ok := headID(c)
		if !ok || !defined[id] {
			continue
		}
		if graph[id] == nil {
			graph[id] = []string{}
		}
		for _, lit := range c.Body {
			callee, ok := ir.StripNegation(lit).(ir.Functor)
			if !ok || !defined[callee.ID()] || slices.Contains(graph[id], callee.ID()) {
				continue
			}
			graph[id] = append(graph[id], callee.ID())
		}
	}
	return graph
}

func headID(c ir.Clause) (string, bool) {
	if len(c.Head) != 1 {
		return "", false
	}
	f, ok := c.Head[0].(ir.Functor)
	if !ok {
		return "", false
	}
	return f.ID(), true
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are stable.
func tarjanSCC(graph dependencyGraph) [][]string {
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
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToWarning(scc []string, graph dependencyGraph) RecursionWarning {
	if len(scc) == 1 {
		id := scc[0]
		return RecursionWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("recursive definition: %s calls itself", id),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return RecursionWarning{
		Path:    path,
		Message: fmt.Sprintf("mutually recursive definitions: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
