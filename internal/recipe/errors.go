package recipe

import (
	"errors"
	"fmt"
)

// ErrRecipe is the sentinel kind for every configuration-time failure:
// malformed YAML, schema violations, cyclic or dangling dependencies,
// forbidden transitive imports, and cross-file references from imports.
// RecipeError always wraps ErrRecipe so callers can distinguish it from
// execution-time failures with errors.Is.
var ErrRecipe = errors.New("recipe error")

// RecipeError annotates a RecipeError-kind failure with the source file and,
// where applicable, the task name involved.
type RecipeError struct {
	File string
	Task string
	Msg  string
}

func (e *RecipeError) Error() string {
	switch {
	case e.File != "" && e.Task != "":
		return fmt.Sprintf("%s: task %q: %s", e.File, e.Task, e.Msg)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	default:
		return e.Msg
	}
}

func (e *RecipeError) Unwrap() error { return ErrRecipe }

func newError(file, task, format string, args ...any) error {
	return &RecipeError{File: file, Task: task, Msg: fmt.Sprintf(format, args...)}
}
