// Package staleness decides, for every task within a run's scope, whether
// it needs to run again. Decisions are made in a fixed order so that a
// task's status never depends on which rule happens to be checked first by
// accident; the first rule that matches wins.
package staleness

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"tasktree/internal/fingerprint"
	"tasktree/internal/graph"
	"tasktree/internal/inputset"
	"tasktree/internal/paramtype"
	"tasktree/internal/state"
	"tasktree/internal/status"
)

// Analyze computes a status.TaskStatus for every task name in scope, which
// must already be in topological order (dependencies before dependents) so
// that dependency_triggered propagation sees upstream decisions first.
//
// argValues supplies the coerced arguments for each task that declares
// parameters; tasks absent from the map are treated as having none.
func Analyze(g *graph.Graph, st state.State, reg paramtype.Registry, scope []string, argValues map[string][]fingerprint.ArgValue) ([]status.TaskStatus, error) {
	results := make([]status.TaskStatus, 0, len(scope))
	willRun := make(map[string]bool, len(scope))

	for _, name := range scope {
		node, ok := g.Node(name)
		if !ok {
			continue
		}
		t := node.Task

		if len(t.Outputs) == 0 && len(t.ExplicitInputs) == 0 {
			results = append(results, mark(name, true, status.ReasonNoOutputs, nil, nil))
			willRun[name] = true
			continue
		}

		taskHash := fingerprint.TaskHash(t)
		var argsHash string
		if t.HasParameters() {
			argsHash = fingerprint.ArgsHash(reg, argValues[name])
		}
		key := fingerprint.CacheKey(taskHash, argsHash)

		entry, found := st[key]
		if !found {
			if t.HasParameters() && hasEntryForTaskHash(st, taskHash) {
				results = append(results, mark(name, true, status.ReasonArgsChanged, nil, nil))
			} else {
				results = append(results, mark(name, true, status.ReasonNeverRun, nil, nil))
			}
			willRun[name] = true
			continue
		}

		inputs := append(append([]string(nil), t.ExplicitInputs...), node.ImplicitInputs...)
		files, missing, err := inputset.Resolve(t.WorkingDir, inputs)
		if err != nil {
			return nil, err
		}

		// last_run is the authoritative "seen at" timestamp: a file counts
		// as changed when its mtime is strictly newer than the last
		// successful run, or when it no longer exists at all. An mtime that
		// moved backwards can never exceed last_run, so it does not trigger
		// a rerun by itself.
		changed := append([]string(nil), missing...)
		for _, f := range files {
			mtime, err := inputset.MTime(f)
			if err != nil {
				return nil, err
			}
			if mtime > entry.LastRun {
				changed = append(changed, f)
			}
		}
		if len(changed) > 0 {
			sort.Strings(changed)
			results = append(results, mark(name, true, status.ReasonInputsChanged, changed, &entry.LastRun))
			willRun[name] = true
			continue
		}

		triggered := false
		for _, dep := range t.Dependencies {
			if willRun[dep] {
				triggered = true
				break
			}
		}
		if triggered {
			results = append(results, mark(name, true, status.ReasonDependencyTriggered, nil, &entry.LastRun))
			willRun[name] = true
			continue
		}

		results = append(results, mark(name, false, status.ReasonFresh, nil, &entry.LastRun))
		willRun[name] = false
	}

	log.Debug().Int("tasks", len(results)).Msg("staleness analysis complete")
	return results, nil
}

func mark(name string, willRun bool, reason status.Reason, changed []string, lastRun *int64) status.TaskStatus {
	return status.TaskStatus{
		QualifiedName: name,
		WillRun:       willRun,
		Reason:        reason,
		ChangedFiles:  changed,
		LastRun:       lastRun,
	}
}

func hasEntryForTaskHash(st state.State, taskHash string) bool {
	for key := range st {
		if key == taskHash || strings.HasPrefix(key, taskHash+"__") {
			return true
		}
	}
	return false
}
