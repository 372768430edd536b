// Package cli: clean.go implements the "storybook-schematic clean" command,
// which deletes the .storybook files generated for a project.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/storybook-schematic/internal/generator"
	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	dryRun bool
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean <project>",
		Short: "Remove the generated Storybook files of a project",
		Long: `Remove the .storybook files generated for a project.

Files that do not exist are skipped. Other files in the project's
.storybook directory and the workspace-wide .storybook directory are kept.

Examples:
  storybook-schematic clean ui
  storybook-schematic clean ui --dry-run`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List the files without deleting them")

	return cmd
}

// runClean is the main logic function for the clean command.
func runClean(w io.Writer, project string, flags *cleanFlags) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	deleted, err := generator.Clean(s.tree, s.workspace, project)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to clean storybook files of %q", project), err)
	}
	VerboseLog("Removing %d files", len(deleted))

	actions := s.tree.Actions()
	if !flags.dryRun {
		if err := s.tree.Commit(); err != nil {
			return wrapError("failed to write changes", err)
		}
	}

	if IsJSONOutput() {
		type resultJSON struct {
			Project string        `json:"project"`
			Actions []tree.Action `json:"actions"`
			DryRun  bool          `json:"dryRun"`
		}
		return printJSON(w, resultJSON{Project: project, Actions: actions, DryRun: flags.dryRun})
	}

	printActions(w, actions, flags.dryRun)
	return nil
}
