package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tasktree/internal/graph"
	"tasktree/internal/paramtype"
	"tasktree/internal/shell"
	"tasktree/internal/state"
	"tasktree/internal/status"
	"tasktree/internal/task"
)

type fakeBackend struct {
	commands  []string
	exitCodes map[string]int // keyed by command; missing entries exit 0
}

func (f *fakeBackend) Run(_ context.Context, req shell.Request) (int, error) {
	f.commands = append(f.commands, req.Command)
	return f.exitCodes[req.Command], nil
}

func TestRun_SkipsTasksThatAreNotStale(t *testing.T) {
	dir := t.TempDir()
	tasks := map[string]*task.Task{
		"build": {QualifiedName: "build", WorkingDir: dir, Outputs: []string{"out.bin"}, Command: "go build"},
	}
	g, err := graph.Build(tasks)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	backend := &fakeBackend{exitCodes: map[string]int{}}
	exec := &Executor{Backend: backend, Registry: paramtype.DefaultRegistry(), State: state.State{}, StatePath: filepath.Join(dir, state.FileName)}

	statuses := map[string]status.TaskStatus{"build": {QualifiedName: "build", WillRun: false, Reason: status.ReasonFresh}}
	if err := exec.Run(context.Background(), g, []string{"build"}, statuses, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(backend.commands) != 0 {
		t.Errorf("Run invoked the backend for a fresh task: %v", backend.commands)
	}
}

func TestRun_RecordsStateOnSuccess(t *testing.T) {
	dir := t.TempDir()
	tasks := map[string]*task.Task{
		"build": {QualifiedName: "build", WorkingDir: dir, Outputs: []string{"out.bin"}, Command: "go build"},
	}
	g, err := graph.Build(tasks)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	backend := &fakeBackend{exitCodes: map[string]int{}}
	statePath := filepath.Join(dir, state.FileName)
	exec := &Executor{Backend: backend, Registry: paramtype.DefaultRegistry(), State: state.State{}, StatePath: statePath}

	statuses := map[string]status.TaskStatus{"build": {QualifiedName: "build", WillRun: true, Reason: status.ReasonNeverRun}}
	if err := exec.Run(context.Background(), g, []string{"build"}, statuses, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(backend.commands) != 1 || backend.commands[0] != "go build" {
		t.Errorf("backend.commands = %v, want [\"go build\"]", backend.commands)
	}
	if len(exec.State) != 1 {
		t.Fatalf("Executor.State = %v, want 1 entry", exec.State)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Errorf("state file was not saved: %v", err)
	}
}

func TestRun_AbortsOnFailureWithoutRunningLaterTasks(t *testing.T) {
	dir := t.TempDir()
	first := &task.Task{QualifiedName: "first", WorkingDir: dir, Outputs: []string{"a.out"}, Command: "fail-me"}
	second := &task.Task{QualifiedName: "second", WorkingDir: dir, Dependencies: []string{"first"}, Outputs: []string{"b.out"}, Command: "never-runs"}
	tasks := map[string]*task.Task{"first": first, "second": second}
	g, err := graph.Build(tasks)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	backend := &fakeBackend{exitCodes: map[string]int{"fail-me": 1}}
	exec := &Executor{Backend: backend, Registry: paramtype.DefaultRegistry(), State: state.State{}, StatePath: filepath.Join(dir, state.FileName)}

	statuses := map[string]status.TaskStatus{
		"first":  {QualifiedName: "first", WillRun: true, Reason: status.ReasonNeverRun},
		"second": {QualifiedName: "second", WillRun: true, Reason: status.ReasonDependencyTriggered},
	}
	if err := exec.Run(context.Background(), g, []string{"first", "second"}, statuses, nil); err == nil {
		t.Fatal("Run did not return an error for a failing task")
	}
	if len(backend.commands) != 1 {
		t.Errorf("backend.commands = %v, want exactly one invocation (the failing task)", backend.commands)
	}
	if len(exec.State) != 0 {
		t.Errorf("Executor.State = %v, want no entries recorded after a failure", exec.State)
	}
}

func TestRun_PersistsEarlierSuccessesWhenALaterTaskFails(t *testing.T) {
	dir := t.TempDir()
	first := &task.Task{QualifiedName: "first", WorkingDir: dir, Outputs: []string{"a.out"}, Command: "ok-task"}
	second := &task.Task{QualifiedName: "second", WorkingDir: dir, Dependencies: []string{"first"}, Outputs: []string{"b.out"}, Command: "fail-me"}
	tasks := map[string]*task.Task{"first": first, "second": second}
	g, err := graph.Build(tasks)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	backend := &fakeBackend{exitCodes: map[string]int{"fail-me": 1}}
	statePath := filepath.Join(dir, state.FileName)
	exec := &Executor{Backend: backend, Registry: paramtype.DefaultRegistry(), State: state.State{}, StatePath: statePath}

	statuses := map[string]status.TaskStatus{
		"first":  {QualifiedName: "first", WillRun: true, Reason: status.ReasonNeverRun},
		"second": {QualifiedName: "second", WillRun: true, Reason: status.ReasonNeverRun},
	}
	if err := exec.Run(context.Background(), g, []string{"first", "second"}, statuses, nil); err == nil {
		t.Fatal("Run did not return an error for a failing task")
	}

	onDisk, err := state.Load(statePath)
	if err != nil {
		t.Fatalf("state.Load: %v", err)
	}
	if len(onDisk) != 1 {
		t.Errorf("state on disk has %d entries, want 1 (first's success must survive second's failure)", len(onDisk))
	}
}

func TestCoerceArgs_SubstitutesCanonicalValues(t *testing.T) {
	exec := &Executor{Registry: paramtype.DefaultRegistry()}
	def := "7"
	tk := &task.Task{
		QualifiedName: "t",
		WorkingDir:    "/work",
		Parameters: []task.Parameter{
			{Name: "n", Type: "int", Default: &def},
			{Name: "p", Type: "path"},
		},
	}

	_, subs, err := exec.coerceArgs(tk, map[string]string{"p": "rel/file.txt"})
	if err != nil {
		t.Fatalf("coerceArgs returned error: %v", err)
	}
	if subs["n"] != "7" {
		t.Errorf("subs[n] = %q, want %q", subs["n"], "7")
	}
	if subs["p"] != "/work/rel/file.txt" {
		t.Errorf("subs[p] = %q, want %q (paths substitute as absolute)", subs["p"], "/work/rel/file.txt")
	}
}

func TestSubstitutePlaceholders(t *testing.T) {
	got, err := substitutePlaceholders("echo {{ name }} to {{dest}}", map[string]string{"name": "hi", "dest": "out.txt"})
	if err != nil {
		t.Fatalf("substitutePlaceholders returned error: %v", err)
	}
	if got != "echo hi to out.txt" {
		t.Errorf("substitutePlaceholders = %q, want %q", got, "echo hi to out.txt")
	}
}

func TestSubstitutePlaceholders_RejectsUndeclaredName(t *testing.T) {
	if _, err := substitutePlaceholders("echo {{missing}}", map[string]string{}); err == nil {
		t.Error("substitutePlaceholders did not reject an undeclared placeholder")
	}
}
