package staleness

import (
	"fmt"

	"tasktree/internal/fingerprint"
	"tasktree/internal/graph"
	"tasktree/internal/paramtype"
	"tasktree/internal/state"
	"tasktree/internal/status"
)

// Report is the read-only run plan for one target: the scoped topological
// order, a status per task in it, and the coerced argument values the
// executor fingerprints with. Execution, --tree, and --dry-run all consume
// the same Report, so they can never disagree about what is stale.
type Report struct {
	Scope     []string
	Statuses  []status.TaskStatus
	ByName    map[string]status.TaskStatus
	ArgValues map[string][]fingerprint.ArgValue
}

// BuildReport scopes g to target, coerces arguments for every parameterised
// task in scope, and classifies each task in topological order.
func BuildReport(g *graph.Graph, st state.State, reg paramtype.Registry, target string, rawArgs map[string]string) (*Report, error) {
	scope, ok := g.Reachable(target)
	if !ok {
		return nil, fmt.Errorf("unknown task %q", target)
	}

	argValues, err := coerceScopeArgs(g, scope, target, rawArgs, reg)
	if err != nil {
		return nil, err
	}

	statuses, err := Analyze(g, st, reg, scope, argValues)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]status.TaskStatus, len(statuses))
	for _, s := range statuses {
		byName[s.QualifiedName] = s
	}
	return &Report{Scope: scope, Statuses: statuses, ByName: byName, ArgValues: argValues}, nil
}

// coerceScopeArgs coerces arguments for every parameterised task in scope,
// so the analysis computes exactly the args_hash the executor will later
// record. Only the target receives caller-supplied values; any
// parameterised dependency falls back to its declared defaults, and a
// required parameter without one fails the whole invocation before any task
// runs.
func coerceScopeArgs(g *graph.Graph, scope []string, target string, rawArgs map[string]string, reg paramtype.Registry) (map[string][]fingerprint.ArgValue, error) {
	out := make(map[string][]fingerprint.ArgValue)
	for _, name := range scope {
		node, _ := g.Node(name)
		t := node.Task
		if !t.HasParameters() {
			continue
		}

		var raw map[string]string
		if name == target {
			raw = rawArgs
		}

		values := make([]fingerprint.ArgValue, 0, len(t.Parameters))
		for _, p := range t.Parameters {
			text, ok := raw[p.Name]
			if !ok {
				if p.Default == nil {
					return nil, fmt.Errorf("missing required argument %q for task %q", p.Name, name)
				}
				text = *p.Default
			}
			coerced, err := reg.Coerce(p.Type, text, t.WorkingDir)
			if err != nil {
				return nil, fmt.Errorf("task %q: argument %q: %w", name, p.Name, err)
			}
			values = append(values, fingerprint.ArgValue{Name: p.Name, Type: p.Type, Value: coerced})
		}
		out[name] = values
	}
	return out, nil
}
