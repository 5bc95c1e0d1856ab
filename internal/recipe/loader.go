// Package recipe reads and parses a YAML recipe file into a raw task table
// plus any import directives. It does not interpret task semantics — that
// is the import resolver's job (internal/importresolve).
package recipe

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Filenames searched, in order, when locating a recipe by directory search.
var CandidateFilenames = []string{"tasktree.yaml", "tt.yaml"}

// Import is one entry of the root recipe's top-level "import" list.
type Import struct {
	File string `yaml:"file"`
	As   string `yaml:"as"`
}

// RawTask is the recipe-file shape of a single task, before namespacing,
// working-directory defaulting, or parameter parsing.
type RawTask struct {
	Description string            `yaml:"description"`
	Deps        []string          `yaml:"deps"`
	Inputs      []string          `yaml:"inputs"`
	Outputs     []string          `yaml:"outputs"`
	WorkingDir  string            `yaml:"working_dir"`
	Args        []string          `yaml:"args"`
	Command     string            `yaml:"cmd"`
}

// Raw is a fully parsed, uninterpreted recipe file: an optional import list
// plus a table of raw task definitions keyed by their in-file name.
type Raw struct {
	Path    string
	Imports []Import
	Tasks   map[string]RawTask
}

// Load reads and parses the recipe YAML file at path. Malformed YAML is
// rejected with a source-located RecipeError; the loader performs no
// semantic validation beyond what is needed to produce a Raw value.
func Load(path string) (*Raw, error) {
	log.Debug().Str("path", path).Msg("loading recipe file")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(path, "", "reading recipe file: %v", err)
	}

	// yaml.v3 does not support ",inline" on a map field the way it does on
	// structs, so the document is decoded in two passes: once for the
	// reserved "import" key, once as a generic map for task bodies.
	var importsOnly struct {
		Import []Import `yaml:"import"`
	}
	if err := yaml.Unmarshal(data, &importsOnly); err != nil {
		return nil, newError(path, "", "parsing YAML: %v", err)
	}

	var generic map[string]yaml.Node
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, newError(path, "", "parsing YAML: %v", err)
	}

	tasks := make(map[string]RawTask, len(generic))
	for key, node := range generic {
		if key == "import" {
			continue
		}
		if err := rejectUnknownFields(path, key, &node); err != nil {
			return nil, err
		}
		var rt RawTask
		if err := node.Decode(&rt); err != nil {
			return nil, newError(path, key, "invalid task definition: %v", err)
		}
		tasks[key] = rt
	}

	if err := validateImports(path, importsOnly.Import); err != nil {
		return nil, err
	}

	return &Raw{Path: path, Imports: importsOnly.Import, Tasks: tasks}, nil
}

var knownTaskFields = map[string]bool{
	"description": true, "deps": true, "inputs": true, "outputs": true,
	"working_dir": true, "args": true, "cmd": true,
}

// rejectUnknownFields errors on any task body key node.Decode would silently
// drop, so a typo like "output:" cannot quietly define a task with no
// outputs.
func rejectUnknownFields(path, taskName string, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return newError(path, taskName, "task definition must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		field := node.Content[i].Value
		if !knownTaskFields[field] {
			return newError(path, taskName, "unknown field %q (line %d)", field, node.Content[i].Line)
		}
	}
	return nil
}

func validateImports(path string, imports []Import) error {
	seen := make(map[string]bool, len(imports))
	for _, imp := range imports {
		if imp.As == "" {
			return newError(path, "", "import of %q is missing required 'as' namespace", imp.File)
		}
		if imp.File == "" {
			return newError(path, "", "import 'as: %s' is missing required 'file'", imp.As)
		}
		if seen[imp.As] {
			return newError(path, "", "duplicate import namespace %q", imp.As)
		}
		seen[imp.As] = true
	}
	return nil
}

// FindRecipe searches dir, then its ancestors, for the first file matching
// CandidateFilenames. It returns the absolute path.
func FindRecipe(dir string) (string, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range CandidateFilenames {
			candidate := filepath.Join(cur, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no %v found in %q or any parent directory", CandidateFilenames, dir)
		}
		cur = parent
	}
}
