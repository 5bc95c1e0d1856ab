package graph

import (
	"strings"

	"tasktree/internal/task"
)

// validatePlaceholders checks that every "{{name}}" placeholder in t.Command
// references a declared parameter.
func validatePlaceholders(t *task.Task) error {
	declared := make(map[string]bool, len(t.Parameters))
	for _, p := range t.Parameters {
		declared[p.Name] = true
	}

	for _, name := range extractPlaceholders(t.Command) {
		if !declared[name] {
			return newGraphError(t.QualifiedName, "command references undeclared parameter %q", name)
		}
	}
	return nil
}

// extractPlaceholders returns the names inside every "{{name}}" occurrence
// in s, in order of appearance, duplicates included.
func extractPlaceholders(s string) []string {
	var names []string
	rest := s
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			break
		}
		rest = rest[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			break
		}
		names = append(names, strings.TrimSpace(rest[:end]))
		rest = rest[end+2:]
	}
	return names
}
