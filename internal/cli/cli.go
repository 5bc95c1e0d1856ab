// Package cli wires the cobra command tree for the tt binary: parsing
// flags and positional task/argument pairs, loading and resolving a
// recipe, and dispatching to the staleness analyzer and executor.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tasktree/internal/executor"
	"tasktree/internal/fingerprint"
	"tasktree/internal/graph"
	"tasktree/internal/importresolve"
	"tasktree/internal/logging"
	"tasktree/internal/paramtype"
	"tasktree/internal/recipe"
	"tasktree/internal/shell"
	"tasktree/internal/staleness"
	"tasktree/internal/state"
	"tasktree/internal/task"
)

// Exit codes returned by Execute.
const (
	ExitOK          = 0
	ExitConfigError = 1
	ExitTaskFailure = 2
	ExitCancelled   = 130
)

var (
	flagFile          string
	flagLogLevel      string
	flagList          bool
	flagInit          bool
	flagShow          string
	flagTree          string
	flagDryRun        string
	flagSSH           string
	flagSSHKey        string
	flagSSHKnownHosts string
)

// Execute parses args and runs the requested command, returning the
// process exit code.
func Execute(ctx context.Context, args []string) int {
	root := &cobra.Command{
		Use:           "tt [task] [args ...]",
		Short:         "A dependency-aware, incremental task runner.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(ctx, args)
		},
	}
	root.SetArgs(args)

	root.PersistentFlags().StringVar(&flagFile, "file", "", "path to the recipe file (default: search upward for tasktree.yaml/tt.yaml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	root.Flags().BoolVar(&flagList, "list", false, "list every available task")
	root.Flags().BoolVar(&flagInit, "init", false, "scaffold a new tasktree.yaml in the current directory")
	root.Flags().StringVar(&flagShow, "show", "", "print a task's full definition")
	root.Flags().StringVar(&flagTree, "tree", "", "print a task's dependency tree with staleness annotations")
	root.Flags().StringVar(&flagDryRun, "dry-run", "", "print what would run for a task without executing anything")
	root.Flags().StringVar(&flagSSH, "ssh", "", "run the target task's command over SSH instead of locally, as user@host[:port]")
	root.Flags().StringVar(&flagSSHKey, "ssh-key", "", "private key file used to authenticate with --ssh")
	root.Flags().StringVar(&flagSSHKnownHosts, "ssh-known-hosts", "", "known_hosts file used to verify the host key for --ssh (skipped if empty)")

	if err := root.Execute(); err != nil {
		logging.Setup(flagLogLevel)
		reportErr(err)
		return exitCodeFor(err)
	}
	return lastExitCode
}

// lastExitCode lets dispatch communicate a code other than 0/1 back through
// cobra's RunE, which only carries an error.
var lastExitCode = ExitOK

func dispatch(ctx context.Context, args []string) error {
	logging.Setup(flagLogLevel)
	lastExitCode = ExitOK

	if flagInit {
		return runInit()
	}

	recipePath, err := resolveRecipePath()
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	root, err := recipe.Load(recipePath)
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	tasks, err := importresolve.Resolve(root, recipe.Load)
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	g, err := graph.Build(tasks)
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	switch {
	case flagList:
		printList(g)
		return nil
	case flagShow != "":
		return runShow(g, flagShow)
	case flagTree != "":
		return runTreeOrDryRun(ctx, g, recipePath, flagTree, false)
	case flagDryRun != "":
		return runTreeOrDryRun(ctx, g, recipePath, flagDryRun, true)
	default:
		return runTask(ctx, g, recipePath, args)
	}
}

// loadPrunedState loads the state file and drops every entry whose
// task_hash no longer belongs to any task in g, so a deleted or renamed
// task's cached state does not accumulate forever. The pruned result is
// saved back immediately when anything was actually dropped.
func loadPrunedState(statePath string, g *graph.Graph) state.State {
	st := state.LoadOrWarn(statePath)

	valid := make(map[string]bool, len(g.Nodes()))
	for _, node := range g.Nodes() {
		valid[fingerprint.TaskHash(node.Task)] = true
	}

	pruned := state.Prune(st, valid)
	if len(pruned) != len(st) {
		if err := state.Save(statePath, pruned); err != nil {
			log.Warn().Err(err).Str("path", statePath).Msg("failed to save pruned state")
		}
	}
	return pruned
}

func resolveRecipePath() (string, error) {
	if flagFile != "" {
		// Working directories default to the recipe file's parent, so the
		// override must be absolute before normalisation sees it.
		return filepath.Abs(flagFile)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return recipe.FindRecipe(cwd)
}

func runTask(ctx context.Context, g *graph.Graph, recipePath string, args []string) error {
	if len(args) == 0 {
		lastExitCode = ExitConfigError
		return fmt.Errorf("no task specified; pass a task name or --list")
	}
	target := args[0]
	targetNode, ok := g.Node(target)
	if !ok {
		lastExitCode = ExitConfigError
		return fmt.Errorf("unknown task %q", target)
	}

	rawArgs, err := parseTaskArgs(targetNode.Task, args[1:])
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	statePath := state.Path(recipeRoot(recipePath))
	st := loadPrunedState(statePath, g)
	reg := paramtype.DefaultRegistry()

	report, err := staleness.BuildReport(g, st, reg, target, rawArgs)
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	byTask := map[string]map[string]string{target: rawArgs}

	backend, err := resolveBackend()
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	exec := &executor.Executor{
		Backend:   backend,
		Registry:  reg,
		State:     st,
		StatePath: statePath,
	}

	if err := exec.Run(ctx, g, report.Scope, report.ByName, byTask); err != nil {
		if ctx.Err() != nil {
			lastExitCode = ExitCancelled
		} else {
			lastExitCode = ExitTaskFailure
		}
		return err
	}
	return nil
}

// resolveBackend picks the shell.Backend a run should use: the local
// machine by default, or a freshly dialled SSH connection when --ssh is
// given. The engine itself never chooses; selection is entirely the
// caller's.
func resolveBackend() (shell.Backend, error) {
	if flagSSH == "" {
		return shell.LocalBackend{}, nil
	}
	user, addr, err := splitSSHTarget(flagSSH)
	if err != nil {
		return nil, err
	}
	if flagSSHKey == "" {
		return nil, fmt.Errorf("--ssh requires --ssh-key")
	}
	return shell.DialRemote(addr, user, flagSSHKey, flagSSHKnownHosts)
}

func splitSSHTarget(target string) (user, addr string, err error) {
	idx := strings.IndexByte(target, '@')
	if idx < 0 {
		return "", "", fmt.Errorf("invalid --ssh target %q; expected user@host[:port]", target)
	}
	user, addr = target[:idx], target[idx+1:]
	if !strings.ContainsRune(addr, ':') {
		addr += ":22"
	}
	return user, addr, nil
}

// parseTaskArgs maps CLI argument words onto t's declared parameters.
// Arguments may be positional (bound in declared order) or name=value pairs;
// a word containing '=' only counts as named when the part before it matches
// a declared parameter, so a positional value containing '=' still binds.
func parseTaskArgs(t *task.Task, args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	next := 0
	for _, a := range args {
		if idx := strings.IndexByte(a, '='); idx >= 0 {
			if name := a[:idx]; hasParameter(t, name) {
				if _, dup := out[name]; dup {
					return nil, fmt.Errorf("argument %q given more than once", name)
				}
				out[name] = a[idx+1:]
				continue
			}
		}

		for next < len(t.Parameters) {
			if _, bound := out[t.Parameters[next].Name]; !bound {
				break
			}
			next++
		}
		if next >= len(t.Parameters) {
			return nil, fmt.Errorf("unexpected argument %q: task %q declares %d parameter(s)", a, t.QualifiedName, len(t.Parameters))
		}
		out[t.Parameters[next].Name] = a
		next++
	}
	return out, nil
}

func hasParameter(t *task.Task, name string) bool {
	_, ok := t.Parameter(name)
	return ok
}

func recipeRoot(recipePath string) string {
	return filepath.Dir(recipePath)
}

func exitCodeFor(err error) int {
	if lastExitCode != ExitOK {
		return lastExitCode
	}
	return ExitConfigError
}

func reportErr(err error) {
	fmt.Fprintln(os.Stderr, "tt:", err)
}
