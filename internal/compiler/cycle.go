package compiler

import (
	"strings"

	"github.com/roach88/manp/internal/ir"
)

// dependencyGraph maps an operation result to the results it consumes.
// Block arguments have no dependencies and are left out.
type dependencyGraph struct {
	nodes []ir.ValueID // program order, for deterministic traversal
	edges map[ir.ValueID][]ir.ValueID
}

// buildDependencyGraph collects result → operand edges for every operation
// with a result. Operands that name no operation result are skipped.
func buildDependencyGraph(fn *ir.Function) dependencyGraph {
	g := dependencyGraph{edges: make(map[ir.ValueID][]ir.ValueID)}

	for i := range fn.Body {
		op := &fn.Body[i]
		if !op.HasResult() {
			continue
		}
		if _, seen := g.edges[op.ID]; seen {
			continue
		}
		g.nodes = append(g.nodes, op.ID)
		g.edges[op.ID] = nil
	}

	for i := range fn.Body {
		op := &fn.Body[i]
		if !op.HasResult() {
			continue
		}
		for _, operand := range op.Operands {
			if _, isResult := g.edges[operand]; isResult {
				g.edges[op.ID] = append(g.edges[op.ID], operand)
			}
		}
	}
	return g
}

// FindCycles reports every dependency cycle among the operation results of
// fn. Each cycle is listed once, as the members of a strongly connected
// component in discovery order. An acyclic graph returns nil.
func FindCycles(fn *ir.Function) [][]ir.ValueID {
	g := buildDependencyGraph(fn)

	var cycles [][]ir.ValueID
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

func hasSelfLoop(node ir.ValueID, g dependencyGraph) bool {
	for _, neighbor := range g.edges[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(g dependencyGraph) [][]ir.ValueID {
	var (
		index   = 0
		stack   []ir.ValueID
		indices = make(map[ir.ValueID]int)
		lowlink = make(map[ir.ValueID]int)
		onStack = make(map[ir.ValueID]bool)
		sccs    [][]ir.ValueID
	)

	var strongConnect func(ir.ValueID)
	strongConnect = func(v ir.ValueID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []ir.ValueID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// formatCycle renders a cycle as "a → b → a".
func formatCycle(cycle []ir.ValueID) string {
	parts := make([]string, 0, len(cycle)+1)
	for _, id := range cycle {
		parts = append(parts, string(id))
	}
	parts = append(parts, string(cycle[0]))
	return strings.Join(parts, " → ")
}
