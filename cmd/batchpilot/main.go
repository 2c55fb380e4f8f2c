// Package main is the batchpilot entry point: a tool for sharding an
// image-processing job into remote detection tasks, tracking them to
// completion, and reconciling the results.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/wildobs/batchpilot/cmd/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := commands.NewRootCommand()
	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
