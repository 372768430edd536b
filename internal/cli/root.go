// Package cli implements the cobra-based CLI commands for storybook-schematic.
//
// Each subcommand (configure, clean, run, latest) is defined in its own
// file within this package. This file defines the root command that serves
// as the parent for all subcommands and handles global flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
)

// Global flag variables shared across all subcommands. They are bound to
// persistent flags on the root command.
var (
	// jsonOutput switches command output and errors to JSON.
	jsonOutput bool

	// verbose lowers the log level to debug.
	verbose bool

	// workspaceDir is the workspace root. Empty means search upward from
	// the current directory.
	workspaceDir string

	// configFile overrides <workspace>/.storybook-schematic.yaml.
	configFile string
)

// logger is built in PersistentPreRunE. It is a no-op until then so that
// helpers can log unconditionally.
var logger = zap.NewNop()

// Version, Commit and Date are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "storybook-schematic",
		Short: "Wire Storybook into Nx and Angular CLI workspace projects",
		Long: `storybook-schematic adds Storybook to a project of an Nx or Angular CLI
workspace: it generates the .storybook configuration, excludes stories from
the project build, registers addons and records the Storybook packages in
package.json with their latest published versions.

It can also remove a project's Storybook files and start the dev server.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose, jsonOutput)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace root (default: search upward from the current directory)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: <workspace>/.storybook-schematic.yaml)")

	rootCmd.AddCommand(NewConfigureCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewLatestCommand())

	return rootCmd
}

// newLogger builds the CLI logger: production settings on stderr, debug
// level when verbose, console encoding unless JSON output was requested.
func newLogger(verbose, jsonOutput bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.Sampling = nil
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if !jsonOutput {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return config.Build()
}

// Execute runs the root command and exits with the code carried by the
// returned error.
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	cliErr := toCLIError(err)
	printError(os.Stderr, cliErr)
	os.Exit(int(cliErr.Code))
}

// toCLIError returns err as a *model.CLIError, classifying plain errors by
// the sentinel they wrap.
func toCLIError(err error) *model.CLIError {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return &model.CLIError{Code: ExitCodeFor(err), Message: err.Error()}
}

// printError outputs an error in the format selected by --json.
func printError(w io.Writer, cliErr *model.CLIError) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"code":    int(cliErr.Code),
				"message": cliErr.Message,
			},
		}
		if cliErr.Err != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = cliErr.Err.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		_, _ = fmt.Fprintln(w, string(data))
		return
	}

	if cliErr.Err != nil {
		_, _ = fmt.Fprintf(w, "Error: %s: %v\n", cliErr.Message, cliErr.Err)
	} else {
		_, _ = fmt.Fprintf(w, "Error: %s\n", cliErr.Message)
	}
}

// VerboseLog logs a formatted debug message. It is shown with --verbose.
func VerboseLog(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
