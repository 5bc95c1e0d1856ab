package graph

import (
	"fmt"
	"strings"

	"tasktree/internal/recipe"
)

func newGraphError(taskName, format string, args ...any) error {
	return &recipe.RecipeError{Task: taskName, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(cycle []string) error {
	if len(cycle) == 0 {
		return &recipe.RecipeError{Msg: "cyclic dependency detected"}
	}
	return &recipe.RecipeError{Msg: "cyclic dependency: " + strings.Join(cycle, " -> ")}
}
