// Package fingerprint computes two deterministic identities: a task's
// task_hash and, for parameterised tasks, its args_hash. Every field is
// length-prefixed before hashing so no field boundary is ambiguous
// regardless of content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"tasktree/internal/paramtype"
	"tasktree/internal/task"
)

// writer accumulates length-prefixed fields into a running hash so that no
// field boundary is ambiguous regardless of content.
type writer struct {
	h interface {
		Write(p []byte) (int, error)
	}
}

func (w writer) field(data []byte) {
	length := uint64(len(data))
	prefix := []byte{
		byte(length >> 56), byte(length >> 48), byte(length >> 40), byte(length >> 32),
		byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
	}
	w.h.Write(prefix)
	w.h.Write(data)
}

func (w writer) count(n int) {
	w.field([]byte{
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
	})
}

// TaskHash computes the 8-character hex task_hash from command, outputs,
// working_dir, and the parameter (name, type_tag) list. Dependencies and
// explicit_inputs deliberately do not contribute: inputs are tracked by
// mtime via the staleness analyzer, and dependencies only affect scheduling.
func TaskHash(t *task.Task) string {
	h := sha256.New()
	w := writer{h: h}

	w.field([]byte(t.Command))

	w.count(len(t.Outputs))
	for _, out := range t.Outputs {
		w.field([]byte(out))
	}

	w.field([]byte(t.WorkingDir))

	w.count(len(t.Parameters))
	for _, p := range t.Parameters {
		w.field([]byte(p.Name))
		w.field([]byte(p.Type))
	}

	return hex.EncodeToString(h.Sum(nil))[:8]
}

// ArgValue pairs a parameter name with its coerced value, for ArgsHash.
type ArgValue struct {
	Name  string
	Type  string
	Value any
}

// ArgsHash computes the 8-character hex args_hash from the coerced argument
// values, serialised in the task's declared parameter order using each
// type's canonical textual encoding. ArgsHash is only meaningful for
// parameterised tasks; callers must not call it otherwise.
func ArgsHash(reg paramtype.Registry, values []ArgValue) string {
	h := sha256.New()
	w := writer{h: h}

	w.count(len(values))
	for _, v := range values {
		w.field([]byte(v.Name))
		w.field([]byte(reg.Canonical(v.Type, v.Value)))
	}

	return hex.EncodeToString(h.Sum(nil))[:8]
}

// CacheKey joins a task_hash and an optional args_hash with a literal
// double underscore separator.
func CacheKey(taskHash, argsHash string) string {
	if argsHash == "" {
		return taskHash
	}
	return taskHash + "__" + argsHash
}
