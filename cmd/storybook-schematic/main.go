// Package main is the entry point for the storybook-schematic CLI.
//
// The binary adds Storybook to projects of Nx and Angular CLI workspaces.
// It delegates all functionality to the internal/cli package, which
// defines the cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// at release time.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shinji-kodama/storybook-schematic/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Interrupting the CLI also stops a running dev server and any
	// in-flight registry request.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCommand()
	cli.Execute(ctx, rootCmd)
}
