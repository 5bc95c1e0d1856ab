package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"tasktree/internal/recipe"
)

const scaffold = `# tasktree.yaml
#
# build:
#   description: compile the project
#   outputs: [bin/app]
#   inputs: [main.go]
#   cmd: go build -o bin/app .
#
# test:
#   deps: [build]
#   cmd: go test ./...

build:
  description: compile the project
  outputs: [bin/app]
  inputs: [main.go]
  cmd: go build -o bin/app .
`

// runInit writes a starter recipe file into the current directory unless
// one already exists.
func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		lastExitCode = ExitConfigError
		return err
	}

	for _, name := range recipe.CandidateFilenames {
		if _, err := os.Stat(filepath.Join(cwd, name)); err == nil {
			lastExitCode = ExitConfigError
			return fmt.Errorf("%s already exists", name)
		}
	}

	target := filepath.Join(cwd, recipe.CandidateFilenames[0])
	if err := os.WriteFile(target, []byte(scaffold), 0o644); err != nil {
		lastExitCode = ExitConfigError
		return err
	}
	fmt.Println("wrote", target)
	return nil
}
