// Package task defines the normalised task record produced by the import
// resolver and consumed by every downstream component (fingerprinter, graph
// builder, staleness analyzer, executor).
package task

// Parameter is a single declared task argument: name[:type][=default].
type Parameter struct {
	Name    string
	Type    string
	Default *string
}

// Task is a fully normalised task definition. Qualified names are either a
// bare identifier (root-file task) or "namespace.identifier" (imported task).
// All fields are populated by the import resolver; nothing downstream
// mutates a Task.
type Task struct {
	QualifiedName  string
	Description    string
	Dependencies   []string
	ExplicitInputs []string
	Outputs        []string
	WorkingDir     string
	Parameters     []Parameter
	Command        string

	// SourceFile is the absolute path of the recipe file this task was
	// declared in. Used only for diagnostics.
	SourceFile string
}

// HasParameters reports whether the task declares any parameters, which
// determines whether an args_hash contributes to its cache key.
func (t *Task) HasParameters() bool {
	return len(t.Parameters) > 0
}

// ParameterNames returns the declared parameter names in declaration order.
func (t *Task) ParameterNames() []string {
	names := make([]string, len(t.Parameters))
	for i, p := range t.Parameters {
		names[i] = p.Name
	}
	return names
}

// Parameter looks up a declared parameter by name.
func (t *Task) Parameter(name string) (Parameter, bool) {
	for _, p := range t.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
