// Command tt is a dependency-aware, incremental task runner: it loads a
// YAML recipe, resolves imports, builds the task graph, decides which
// tasks are stale, and runs exactly those, in dependency order.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tasktree/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(cli.Execute(ctx, os.Args[1:]))
}
