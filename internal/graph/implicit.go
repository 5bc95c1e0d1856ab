package graph

import (
	"path/filepath"

	"tasktree/internal/task"
)

// computeImplicitInputs computes the one-hop union, over t's direct
// dependencies, of each dependency's outputs if non-empty, otherwise the
// dependency's explicit_inputs. This does not recurse through the
// transitive closure.
//
// Inherited patterns keep the declaring dependency's working directory as
// their base, so they are absolutised here rather than left for the
// dependent to resolve against its own working_dir, which may differ when
// the dependency comes from an imported file.
func computeImplicitInputs(t *task.Task, nodes map[string]*Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, depName := range t.Dependencies {
		dep := nodes[depName].Task
		inherited := dep.Outputs
		if len(inherited) == 0 {
			inherited = dep.ExplicitInputs
		}
		for _, pattern := range inherited {
			if !filepath.IsAbs(pattern) && dep.WorkingDir != "" {
				pattern = filepath.Join(dep.WorkingDir, pattern)
			}
			if seen[pattern] {
				continue
			}
			seen[pattern] = true
			out = append(out, pattern)
		}
	}
	return out
}
