package pipeline

import (
	"slices"

	"github.com/roach88/specflow/internal/bytecode"
)

// CallGraph maps each function in a holder to the functions it calls.
// Calls to functions without targets are not edges.
type CallGraph struct {
	nodes []FunID
	edges map[FunID][]FunID
}

// NewCallGraph derives the call graph from the code of every variant in h.
func NewCallGraph(h *TargetsHolder) *CallGraph {
	g := &CallGraph{nodes: h.Functions(), edges: make(map[FunID][]FunID)}
	known := make(map[FunID]bool, len(g.nodes))
	for _, f := range g.nodes {
		known[f] = true
	}
	for _, f := range g.nodes {
		var callees []FunID
		for _, data := range h.Targets(f) {
			for _, c := range bytecode.Callees(data.Code) {
				if known[c] && !slices.Contains(callees, c) {
					callees = append(callees, c)
				}
			}
		}
		slices.SortFunc(callees, compareFunID)
		g.edges[f] = callees
	}
	return g
}

// Nodes returns the functions in sorted order.
func (g *CallGraph) Nodes() []FunID { return g.nodes }

// Callees returns the sorted callees of f.
func (g *CallGraph) Callees(f FunID) []FunID { return g.edges[f] }

// Component is a strongly connected component of the call graph.
type Component struct {
	Members []FunID

	// Cyclic is set when the component has more than one member or its
	// single member calls itself.
	Cyclic bool
}

// SCCs returns the strongly connected components, callees first: every
// component comes after all components it calls into. Members are sorted.
func (g *CallGraph) SCCs() []Component {
	var (
		index   = 0
		stack   []FunID
		indices = make(map[FunID]int)
		lowlink = make(map[FunID]int)
		onStack = make(map[FunID]bool)
		out     []Component
	)

	var strongConnect func(FunID)
	strongConnect = func(v FunID) {
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

		// v is the root of a component; everything above it on the stack
		// belongs to it.
		if lowlink[v] == indices[v] {
			var members []FunID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				members = append(members, w)
				if w == v {
					break
				}
			}
			slices.SortFunc(members, compareFunID)
			cyclic := len(members) > 1 || slices.Contains(g.edges[v], v)
			out = append(out, Component{Members: members, Cyclic: cyclic})
		}
	}

	for _, n := range g.nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return out
}

// Levels groups the components so that every component only calls into
// components of earlier levels. Components within a level are independent.
func (g *CallGraph) Levels(sccs []Component) [][]Component {
	compOf := make(map[FunID]int)
	for i, c := range sccs {
		for _, m := range c.Members {
			compOf[m] = i
		}
	}

	// sccs is in callee-first order, so callee levels are known before
	// they are needed.
	level := make([]int, len(sccs))
	maxLevel := -1
	for i, c := range sccs {
		for _, m := range c.Members {
			for _, callee := range g.edges[m] {
				if j := compOf[callee]; j != i {
					level[i] = max(level[i], level[j]+1)
				}
			}
		}
		maxLevel = max(maxLevel, level[i])
	}

	out := make([][]Component, maxLevel+1)
	for i, c := range sccs {
		out[level[i]] = append(out[level[i]], c)
	}
	return out
}
