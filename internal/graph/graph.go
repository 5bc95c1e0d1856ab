// Package graph validates the flat task mapping produced by the import
// resolver, computes each task's implicit inputs, and produces a
// deterministic topological order. A Graph is immutable and fully validated
// at construction time; canonical ordering is baked in rather than computed
// on demand.
package graph

import (
	"sort"

	"github.com/rs/zerolog/log"

	"tasktree/internal/task"
)

// Node is an immutable graph node: the normalised task plus its computed
// implicit inputs.
type Node struct {
	Task           *task.Task
	ImplicitInputs []string
}

// Graph is an immutable, validated task dependency graph.
type Graph struct {
	nodes map[string]*Node
	order []string // topological order, dependencies before dependents
}

// Build validates tasks and constructs a Graph.
func Build(tasks map[string]*task.Task) (*Graph, error) {
	if err := validateDependenciesExist(tasks); err != nil {
		return nil, err
	}

	order, err := topologicalOrder(tasks)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*Node, len(tasks))
	for name, t := range tasks {
		nodes[name] = &Node{Task: t}
	}
	for name, n := range nodes {
		n.ImplicitInputs = computeImplicitInputs(nodes[name].Task, nodes)
	}

	for _, t := range tasks {
		if err := validatePlaceholders(t); err != nil {
			return nil, err
		}
	}

	g := &Graph{nodes: nodes, order: order}
	log.Debug().Int("tasks", len(nodes)).Strs("order", order).Msg("graph built")
	return g, nil
}

// Node looks up a node by qualified name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns every node keyed by qualified name. The caller must not
// mutate the returned map's values.
func (g *Graph) Nodes() map[string]*Node {
	return g.nodes
}

// TopologicalOrder returns the full graph's deterministic topological order:
// dependencies before dependents, ties broken lexicographically by
// qualified_name.
func (g *Graph) TopologicalOrder() []string {
	return append([]string(nil), g.order...)
}

// Reachable returns target and every task it transitively depends on, in
// topological order (dependencies first). Used by the Staleness Analyzer and
// Executor to scope a run to exactly the nodes a CLI invocation targets.
func (g *Graph) Reachable(target string) ([]string, bool) {
	if _, ok := g.nodes[target]; !ok {
		return nil, false
	}

	include := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if include[name] {
			return
		}
		include[name] = true
		n := g.nodes[name]
		for _, dep := range n.Task.Dependencies {
			visit(dep)
		}
	}
	visit(target)

	out := make([]string, 0, len(include))
	for _, name := range g.order {
		if include[name] {
			out = append(out, name)
		}
	}
	return out, true
}

func validateDependenciesExist(tasks map[string]*task.Task) error {
	for name, t := range tasks {
		seen := make(map[string]bool, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if seen[dep] {
				return newGraphError(name, "duplicate dependency %q", dep)
			}
			seen[dep] = true
			if _, ok := tasks[dep]; !ok {
				return newGraphError(name, "dependency %q does not exist", dep)
			}
		}
	}
	return nil
}

// topologicalOrder computes a deterministic topological order via Kahn's
// algorithm with a sorted ready set, so ties are always broken
// lexicographically by qualified_name.
func topologicalOrder(tasks map[string]*task.Task) ([]string, error) {
	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for name := range tasks {
		indegree[name] = 0
	}
	for name, t := range tasks {
		for _, dep := range t.Dependencies {
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}
	for dep := range dependents {
		sort.Strings(dependents[dep])
	}

	ready := make([]string, 0, len(tasks))
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(tasks))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				insertSorted(&ready, dependent)
			}
		}
	}

	if len(order) != len(tasks) {
		cycle := findCycle(tasks, indegree)
		return nil, cycleError(cycle)
	}
	return order, nil
}

func insertSorted(ready *[]string, name string) {
	s := *ready
	i := sort.SearchStrings(s, name)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = name
	*ready = s
}

// findCycle performs a deterministic DFS over the remaining (still
// nonzero-indegree) nodes to extract one cycle as a witness for the error
// message.
func findCycle(tasks map[string]*task.Task, indegree map[string]int) []string {
	remaining := make([]string, 0, len(indegree))
	for name, deg := range indegree {
		if deg > 0 {
			remaining = append(remaining, name)
		}
	}
	sort.Strings(remaining)

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(remaining))
	var path []string
	var cycle []string

	var dfs func(name string) bool
	dfs = func(name string) bool {
		color[name] = gray
		path = append(path, name)
		deps := tasks[name].Dependencies
		sorted := append([]string(nil), deps...)
		sort.Strings(sorted)
		for _, dep := range sorted {
			if indegree[dep] == 0 {
				continue // not part of any remaining cycle
			}
			switch color[dep] {
			case white:
				if dfs(dep) {
					return true
				}
			case gray:
				// Found the back-edge; extract the cycle portion of path.
				for i := len(path) - 1; i >= 0; i-- {
					cycle = append(cycle, path[i])
					if path[i] == dep {
						break
					}
				}
				return true
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return false
	}

	for _, name := range remaining {
		if color[name] == white {
			if dfs(name) {
				break
			}
		}
	}
	return cycle
}
