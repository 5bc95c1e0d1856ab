// Package importresolve merges a root recipe and its imported files into a
// single flat task namespace, rewriting qualified names, dependency
// references, and working directories along the way.
package importresolve

import (
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"tasktree/internal/paramtype"
	"tasktree/internal/recipe"
	"tasktree/internal/task"
)

// Resolve merges root (and everything it imports) into a flat task mapping
// keyed by fully-qualified name.
//
// loadImport is injected so tests can substitute an in-memory loader;
// production callers pass recipe.Load.
func Resolve(root *recipe.Raw, loadImport func(path string) (*recipe.Raw, error)) (map[string]*task.Task, error) {
	rootDir := filepath.Dir(root.Path)

	flat := make(map[string]*task.Task, len(root.Tasks))

	// Root-file tasks: working_dir defaults to the root file's parent.
	rootNames := sortedKeys(root.Tasks)
	for _, name := range rootNames {
		t, err := normalize(name, root.Tasks[name], rootDir, "", root.Path)
		if err != nil {
			return nil, err
		}
		flat[t.QualifiedName] = t
	}

	seenNamespaces := make(map[string]bool, len(root.Imports))
	for _, imp := range root.Imports {
		if _, collides := root.Tasks[imp.As]; collides {
			return nil, newImportError(root.Path, "import namespace %q collides with a root-level task name", imp.As)
		}
		if seenNamespaces[imp.As] {
			return nil, newImportError(root.Path, "duplicate import namespace %q", imp.As)
		}
		seenNamespaces[imp.As] = true

		importPath := filepath.Join(rootDir, imp.File)
		imported, err := loadImport(importPath)
		if err != nil {
			return nil, err
		}
		if len(imported.Imports) > 0 {
			return nil, newImportError(importPath, "transitive imports are not allowed (imported by %q as %q)", root.Path, imp.As)
		}

		importedDir := filepath.Dir(imported.Path)
		names := sortedKeys(imported.Tasks)
		for _, name := range names {
			qualified := imp.As + "." + name
			if _, exists := flat[qualified]; exists {
				return nil, newImportError(importPath, "duplicate qualified task name %q", qualified)
			}
			t, err := normalizeImported(name, imp.As, imported.Tasks[name], importedDir, imported.Path)
			if err != nil {
				return nil, err
			}
			flat[qualified] = t
		}
	}

	log.Debug().Int("tasks", len(flat)).Msg("import resolution complete")
	return flat, nil
}

func normalize(name string, raw recipe.RawTask, baseDir, namespace, sourceFile string) (*task.Task, error) {
	wd := baseDir
	if raw.WorkingDir != "" {
		if filepath.IsAbs(raw.WorkingDir) {
			wd = raw.WorkingDir
		} else {
			wd = filepath.Join(baseDir, raw.WorkingDir)
		}
	}

	params, err := parseParameters(raw.Args, sourceFile, name)
	if err != nil {
		return nil, err
	}

	deps, err := normalizeDeps(raw.Deps, namespace, sourceFile, name)
	if err != nil {
		return nil, err
	}

	return &task.Task{
		QualifiedName:  qualify(namespace, name),
		Description:    raw.Description,
		Dependencies:   deps,
		ExplicitInputs: append([]string(nil), raw.Inputs...),
		Outputs:        append([]string(nil), raw.Outputs...),
		WorkingDir:     wd,
		Parameters:     params,
		Command:        raw.Command,
		SourceFile:     sourceFile,
	}, nil
}

// normalizeImported builds a Task for a task declared inside an imported
// file. A bare dependency name "x" becomes "namespace.x"; a qualified
// dependency reference is rejected outright, since imported files may only
// depend on tasks within the same file.
func normalizeImported(name, namespace string, raw recipe.RawTask, baseDir, sourceFile string) (*task.Task, error) {
	return normalize(name, raw, baseDir, namespace, sourceFile)
}

func normalizeDeps(deps []string, namespace, sourceFile, taskName string) ([]string, error) {
	seen := make(map[string]bool, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		qualified := d
		if namespace != "" {
			if isQualified(d) {
				return nil, newTaskError(sourceFile, qualify(namespace, taskName), "imported task cannot depend on qualified name %q; imported files may only depend on tasks in the same file", d)
			}
			qualified = namespace + "." + d
		}
		if seen[qualified] {
			return nil, newTaskError(sourceFile, qualify(namespace, taskName), "duplicate dependency %q", d)
		}
		seen[qualified] = true
		out = append(out, qualified)
	}
	return out, nil
}

func parseParameters(args []string, sourceFile, taskName string) ([]task.Parameter, error) {
	seen := make(map[string]bool, len(args))
	params := make([]task.Parameter, 0, len(args))
	for _, literal := range args {
		name, typeTag, def, err := paramtype.ParseLiteral(literal)
		if err != nil {
			return nil, newTaskError(sourceFile, taskName, "%v", err)
		}
		if seen[name] {
			return nil, newTaskError(sourceFile, taskName, "duplicate parameter name %q", name)
		}
		seen[name] = true
		params = append(params, task.Parameter{Name: name, Type: typeTag, Default: def})
	}
	return params, nil
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func isQualified(name string) bool {
	for _, r := range name {
		if r == '.' {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]recipe.RawTask) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
