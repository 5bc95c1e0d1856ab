package importresolve

import (
	"fmt"

	"tasktree/internal/recipe"
)

func newImportError(file, format string, args ...any) error {
	return newRecipeErr(file, "", format, args...)
}

func newTaskError(file, taskName, format string, args ...any) error {
	return newRecipeErr(file, taskName, format, args...)
}

// newRecipeErr constructs a recipe.RecipeError without exporting the
// unexported constructor in the recipe package, keeping a single error kind
// (recipe.ErrRecipe) across the Loader and Import Resolver.
func newRecipeErr(file, task, format string, args ...any) error {
	return &recipe.RecipeError{File: file, Task: task, Msg: fmt.Sprintf(format, args...)}
}
