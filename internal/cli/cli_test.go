package cli

import (
	"path/filepath"
	"testing"

	"tasktree/internal/fingerprint"
	"tasktree/internal/graph"
	"tasktree/internal/shell"
	"tasktree/internal/state"
	"tasktree/internal/task"
)

func paramTask() *task.Task {
	return &task.Task{
		QualifiedName: "greet",
		Parameters: []task.Parameter{
			{Name: "name"},
			{Name: "count", Type: "int"},
		},
	}
}

func TestParseTaskArgs_NamedPairs(t *testing.T) {
	got, err := parseTaskArgs(paramTask(), []string{"name=world", "count=3"})
	if err != nil {
		t.Fatalf("parseTaskArgs returned error: %v", err)
	}
	if got["name"] != "world" || got["count"] != "3" {
		t.Errorf("parseTaskArgs = %v, want name=world count=3", got)
	}
}

func TestParseTaskArgs_PositionalBindInDeclaredOrder(t *testing.T) {
	got, err := parseTaskArgs(paramTask(), []string{"world", "3"})
	if err != nil {
		t.Fatalf("parseTaskArgs returned error: %v", err)
	}
	if got["name"] != "world" || got["count"] != "3" {
		t.Errorf("parseTaskArgs = %v, want name=world count=3", got)
	}
}

func TestParseTaskArgs_MixedNamedAndPositional(t *testing.T) {
	got, err := parseTaskArgs(paramTask(), []string{"count=3", "world"})
	if err != nil {
		t.Fatalf("parseTaskArgs returned error: %v", err)
	}
	if got["name"] != "world" || got["count"] != "3" {
		t.Errorf("parseTaskArgs = %v, want name=world count=3", got)
	}
}

func TestParseTaskArgs_RejectsTooManyPositionals(t *testing.T) {
	if _, err := parseTaskArgs(paramTask(), []string{"a", "b", "c"}); err == nil {
		t.Error("parseTaskArgs did not reject more positionals than declared parameters")
	}
}

func TestParseTaskArgs_RejectsDuplicateNamed(t *testing.T) {
	if _, err := parseTaskArgs(paramTask(), []string{"name=a", "name=b"}); err == nil {
		t.Error("parseTaskArgs did not reject a repeated named argument")
	}
}

func TestLoadPrunedState_DropsEntriesForTasksNoLongerInTheGraph(t *testing.T) {
	dir := t.TempDir()
	statePath := state.Path(dir)

	build := &task.Task{QualifiedName: "build", WorkingDir: dir, Outputs: []string{"bin/app"}, Command: "go build"}
	g, err := graph.Build(map[string]*task.Task{"build": build})
	if err != nil {
		t.Fatalf("graph.Build returned error: %v", err)
	}

	staleKey := "deadbeef"
	liveKey := fingerprint.TaskHash(build)
	existing := state.State{
		staleKey: {LastRun: 1},
		liveKey:  {LastRun: 2},
	}
	if err := state.Save(statePath, existing); err != nil {
		t.Fatalf("state.Save returned error: %v", err)
	}

	got := loadPrunedState(statePath, g)
	if _, ok := got[staleKey]; ok {
		t.Errorf("loadPrunedState kept %q, want it dropped (no task in the graph hashes to it)", staleKey)
	}
	if _, ok := got[liveKey]; !ok {
		t.Errorf("loadPrunedState dropped %q, want it kept (build still hashes to it)", liveKey)
	}

	onDisk, err := state.Load(statePath)
	if err != nil {
		t.Fatalf("state.Load returned error: %v", err)
	}
	if _, ok := onDisk[staleKey]; ok {
		t.Errorf("pruned state was not persisted to %s: stale key still present on disk", filepath.Base(statePath))
	}
}

func TestSplitSSHTarget(t *testing.T) {
	user, addr, err := splitSSHTarget("deploy@build-host:2222")
	if err != nil {
		t.Fatalf("splitSSHTarget returned error: %v", err)
	}
	if user != "deploy" || addr != "build-host:2222" {
		t.Errorf("splitSSHTarget = (%q, %q), want (%q, %q)", user, addr, "deploy", "build-host:2222")
	}
}

func TestSplitSSHTarget_DefaultsPort22(t *testing.T) {
	_, addr, err := splitSSHTarget("deploy@build-host")
	if err != nil {
		t.Fatalf("splitSSHTarget returned error: %v", err)
	}
	if addr != "build-host:22" {
		t.Errorf("addr = %q, want %q", addr, "build-host:22")
	}
}

func TestSplitSSHTarget_RejectsMissingUser(t *testing.T) {
	if _, _, err := splitSSHTarget("build-host"); err == nil {
		t.Error("splitSSHTarget did not reject a target without a user")
	}
}

func TestResolveBackend_DefaultsToLocal(t *testing.T) {
	flagSSH = ""
	backend, err := resolveBackend()
	if err != nil {
		t.Fatalf("resolveBackend returned error: %v", err)
	}
	if _, ok := backend.(shell.LocalBackend); !ok {
		t.Errorf("resolveBackend() = %T, want shell.LocalBackend", backend)
	}
}

func TestRecipeRoot(t *testing.T) {
	if got := recipeRoot("/proj/sub/tasktree.yaml"); got != "/proj/sub" {
		t.Errorf("recipeRoot = %q, want %q", got, "/proj/sub")
	}
	if got := recipeRoot("tasktree.yaml"); got != "." {
		t.Errorf("recipeRoot = %q, want %q", got, ".")
	}
}
