package cli

import (
	"context"
	"fmt"
	"sort"

	"tasktree/internal/graph"
	"tasktree/internal/paramtype"
	"tasktree/internal/staleness"
	"tasktree/internal/state"
	"tasktree/internal/status"
)

func printList(g *graph.Graph) {
	names := make([]string, 0, len(g.Nodes()))
	for name := range g.Nodes() {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		node, _ := g.Node(name)
		if node.Task.Description != "" {
			fmt.Printf("%-30s %s\n", name, node.Task.Description)
		} else {
			fmt.Println(name)
		}
	}
}

func runShow(g *graph.Graph, name string) error {
	node, ok := g.Node(name)
	if !ok {
		lastExitCode = ExitConfigError
		return fmt.Errorf("unknown task %q", name)
	}
	t := node.Task

	fmt.Printf("task: %s\n", t.QualifiedName)
	if t.Description != "" {
		fmt.Printf("description: %s\n", t.Description)
	}
	fmt.Printf("working_dir: %s\n", t.WorkingDir)
	if len(t.Dependencies) > 0 {
		fmt.Printf("deps: %v\n", t.Dependencies)
	}
	if len(t.ExplicitInputs) > 0 {
		fmt.Printf("inputs: %v\n", t.ExplicitInputs)
	}
	if len(node.ImplicitInputs) > 0 {
		fmt.Printf("implicit_inputs: %v\n", node.ImplicitInputs)
	}
	if len(t.Outputs) > 0 {
		fmt.Printf("outputs: %v\n", t.Outputs)
	}
	for _, p := range t.Parameters {
		def := "(required)"
		if p.Default != nil {
			def = fmt.Sprintf("default=%q", *p.Default)
		}
		typ := p.Type
		if typ == "" {
			typ = string(paramtype.TagString)
		}
		fmt.Printf("arg: %s:%s %s\n", p.Name, typ, def)
	}
	fmt.Printf("command: %s\n", t.Command)
	return nil
}

func runTreeOrDryRun(ctx context.Context, g *graph.Graph, recipePath, target string, dryRun bool) error {
	if _, ok := g.Node(target); !ok {
		lastExitCode = ExitConfigError
		return fmt.Errorf("unknown task %q", target)
	}

	statePath := state.Path(recipeRoot(recipePath))
	st := loadPrunedState(statePath, g)
	reg := paramtype.DefaultRegistry()

	report, err := staleness.BuildReport(g, st, reg, target, nil)
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	for _, s := range report.Statuses {
		printStatusLine(s, dryRun)
	}
	return nil
}

func printStatusLine(s status.TaskStatus, dryRun bool) {
	verb := "skip "
	if s.WillRun {
		verb = "run  "
		if dryRun {
			verb = "would run"
		}
	} else if dryRun {
		verb = "would skip"
	}

	line := fmt.Sprintf("%s %-30s (%s)", verb, s.QualifiedName, s.Reason)
	if len(s.ChangedFiles) > 0 {
		line += fmt.Sprintf(" changed: %v", s.ChangedFiles)
	}
	fmt.Println(line)
}
