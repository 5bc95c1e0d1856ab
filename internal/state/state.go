// Package state implements loading, pruning, and atomically saving the
// `.tasktree-state` file that records each task's last successful run and
// the input mtimes observed at that time. Saves always go through a
// temporary sibling file followed by a rename, so the state file is never
// observed half-written.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog/log"
)

// FileName is the state file's name within the recipe root directory.
const FileName = ".tasktree-state"

// Entry is the persisted record for one cache key.
type Entry struct {
	LastRun    int64            `json:"last_run"`
	InputState map[string]int64 `json:"input_state"`
}

// State maps cache key to its Entry.
type State map[string]Entry

// cacheKeyPattern matches a task_hash with an optional __args_hash suffix,
// each 8 lowercase hex characters.
var cacheKeyPattern = regexp.MustCompile(`^[0-9a-f]{8}(?:__[0-9a-f]{8})?$`)

// Load reads and parses the state file at path. A missing file yields an
// empty State. A parse error is reported via the returned error but is not
// meant to be fatal to the caller: callers should log a one-line warning
// and proceed with an empty State.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("reading state file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("parsing state file: %w", err)
	}

	// Keys that do not look like cache keys, and entries whose value does
	// not decode into the expected shape, are dropped silently rather than
	// failing the whole file.
	s := make(State, len(raw))
	for key, val := range raw {
		if !cacheKeyPattern.MatchString(key) {
			continue
		}
		var e Entry
		if err := json.Unmarshal(val, &e); err != nil {
			continue
		}
		s[key] = e
	}
	return s, nil
}

// LoadOrWarn wraps Load with the project's recovery policy: a corrupt state
// file is not fatal, it is logged and replaced with an empty State so the
// run can proceed (everything will appear never_run, which is conservative).
func LoadOrWarn(path string) State {
	s, err := Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("state file unreadable, starting with empty state")
		return State{}
	}
	return s
}

// Prune removes every entry whose cache-key task_hash prefix is not among
// validTaskHashes. It returns the pruned copy; the input is not mutated.
func Prune(s State, validTaskHashes map[string]bool) State {
	out := make(State, len(s))
	for key, entry := range s {
		prefix := taskHashPrefix(key)
		if validTaskHashes[prefix] {
			out[key] = entry
		} else {
			log.Debug().Str("cache_key", key).Msg("pruning stale state entry")
		}
	}
	return out
}

func taskHashPrefix(cacheKey string) string {
	for i := 0; i+1 < len(cacheKey); i++ {
		if cacheKey[i] == '_' && cacheKey[i+1] == '_' {
			return cacheKey[:i]
		}
	}
	return cacheKey
}

// Save serialises s to path, writing to a temporary sibling file and then
// renaming into place so the state file is never observed half-written.
func Save(path string, s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("committing state file: %w", err)
	}
	committed = true
	return nil
}

// Path returns the state file's path inside the given recipe root directory.
// The result is absolute only when recipeRoot is.
func Path(recipeRoot string) string {
	return filepath.Join(recipeRoot, FileName)
}
