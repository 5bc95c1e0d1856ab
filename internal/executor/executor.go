// Package executor runs a scoped, topologically ordered sequence of tasks,
// coercing arguments, substituting placeholders, invoking a shell.Backend,
// and updating the state store only for tasks that actually ran and
// succeeded.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tasktree/internal/fingerprint"
	"tasktree/internal/graph"
	"tasktree/internal/inputset"
	"tasktree/internal/paramtype"
	"tasktree/internal/shell"
	"tasktree/internal/state"
	"tasktree/internal/status"
	"tasktree/internal/task"
)

// ErrTaskFailed wraps a non-zero exit from a task's command.
var ErrTaskFailed = errors.New("task failed")

// Executor runs tasks against a backend and persists results to a state
// store.
type Executor struct {
	Backend   shell.Backend
	Registry  paramtype.Registry
	State     state.State
	StatePath string
}

// Run executes every task in scope (topological order) whose status says
// WillRun, skipping the rest, and stops at the first failure without
// starting any task after it. rawArgs supplies the CLI-provided argument
// strings for each task name that declares parameters; a missing value
// falls back to the parameter's declared default, or fails coercion if
// there is none.
//
// State is persisted atomically after every successful task, so the
// results of tasks that completed before a failure or an interrupt are
// durable before the next task starts. A task that fails records nothing.
func (e *Executor) Run(ctx context.Context, g *graph.Graph, scope []string, statuses map[string]status.TaskStatus, rawArgs map[string]map[string]string) error {
	runID := uuid.NewString()
	rlog := log.With().Str("run_id", runID).Logger()

	for _, name := range scope {
		st, ok := statuses[name]
		if !ok || !st.WillRun {
			rlog.Debug().Str("task", name).Msg("skipping fresh task")
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		node, ok := g.Node(name)
		if !ok {
			return fmt.Errorf("executor: unknown task %q", name)
		}

		if err := e.runOne(ctx, rlog, node.Task, node.ImplicitInputs, rawArgs[name]); err != nil {
			return fmt.Errorf("task %q: %w", name, err)
		}
	}
	return nil
}

func (e *Executor) runOne(ctx context.Context, rlog zerolog.Logger, t *task.Task, implicitInputs []string, raw map[string]string) error {
	values, substitutions, err := e.coerceArgs(t, raw)
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}

	command, err := substitutePlaceholders(t.Command, substitutions)
	if err != nil {
		return err
	}

	rlog.Info().Str("task", t.QualifiedName).Str("command", command).Msg("running task")

	startedAt := time.Now().Unix()
	exitCode, err := e.Backend.Run(ctx, shell.Request{
		Command:    command,
		WorkingDir: t.WorkingDir,
		Env:        os.Environ(),
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	})
	if err != nil {
		return err
	}
	if exitCode != 0 {
		rlog.Error().Str("task", t.QualifiedName).Int("exit_code", exitCode).Msg("task failed")
		return fmt.Errorf("%w: exit code %d", ErrTaskFailed, exitCode)
	}

	return e.recordSuccess(t, implicitInputs, values, startedAt)
}

func (e *Executor) recordSuccess(t *task.Task, implicitInputs []string, values []fingerprint.ArgValue, startedAt int64) error {
	taskHash := fingerprint.TaskHash(t)
	var argsHash string
	if t.HasParameters() {
		argsHash = fingerprint.ArgsHash(e.Registry, values)
	}
	key := fingerprint.CacheKey(taskHash, argsHash)

	inputs := append(append([]string(nil), t.ExplicitInputs...), implicitInputs...)
	files, _, err := inputset.Resolve(t.WorkingDir, inputs)
	if err != nil {
		return fmt.Errorf("resolving inputs: %w", err)
	}

	inputState := make(map[string]int64, len(files))
	for _, f := range files {
		mtime, err := inputset.MTime(f)
		if err != nil {
			continue // vanished between resolution and recording; next run will see it as missing
		}
		inputState[f] = mtime
	}

	e.State[key] = state.Entry{LastRun: startedAt, InputState: inputState}
	if err := state.Save(e.StatePath, e.State); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

// coerceArgs resolves each declared parameter against raw (falling back to
// its default) and coerces it via the registry, failing before the command
// ever runs. It returns both the fingerprintable ArgValue list and the
// canonical string forms used for placeholder substitution, so the command
// sees the coerced value (an absolute path, a normalised address) rather
// than whatever text the caller typed.
func (e *Executor) coerceArgs(t *task.Task, raw map[string]string) ([]fingerprint.ArgValue, map[string]string, error) {
	values := make([]fingerprint.ArgValue, 0, len(t.Parameters))
	substitutions := make(map[string]string, len(t.Parameters))

	for _, p := range t.Parameters {
		text, ok := raw[p.Name]
		if !ok {
			if p.Default == nil {
				return nil, nil, fmt.Errorf("missing required argument %q", p.Name)
			}
			text = *p.Default
		}

		coerced, err := e.Registry.Coerce(p.Type, text, t.WorkingDir)
		if err != nil {
			return nil, nil, fmt.Errorf("argument %q: %w", p.Name, err)
		}

		values = append(values, fingerprint.ArgValue{Name: p.Name, Type: p.Type, Value: coerced})
		substitutions[p.Name] = e.Registry.Canonical(p.Type, coerced)
	}
	return values, substitutions, nil
}

func substitutePlaceholders(command string, values map[string]string) (string, error) {
	var out strings.Builder
	rest := command
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, "}}")
		if end < 0 {
			return "", fmt.Errorf("unterminated placeholder in command %q", command)
		}
		name := strings.TrimSpace(rest[:end])
		value, ok := values[name]
		if !ok {
			return "", fmt.Errorf("command references undeclared parameter %q", name)
		}
		out.WriteString(value)
		rest = rest[end+2:]
	}
	return out.String(), nil
}
