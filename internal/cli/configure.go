// Package cli: configure.go implements the "storybook-schematic configure"
// command.
//
// The command adds Storybook to one project: it renders the .storybook
// templates, updates the project tsconfig and the workspace addons.js, and
// records the Storybook packages in package.json. All changes are staged
// and written at the end, or only listed with --dry-run.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/storybook-schematic/internal/generator"
	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/registry"
	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// configureFlags holds the flag values for the configure command. Flags
// that were not set fall back to the config file.
type configureFlags struct {
	uiFramework string
	addons      []string
	overwrite   bool
	dryRun      bool
	registry    string
	timeout     time.Duration

	// changed reports whether a flag was set on the command line.
	changed func(name string) bool
}

// NewConfigureCommand creates the "configure" cobra command.
func NewConfigureCommand() *cobra.Command {
	flags := &configureFlags{}

	cmd := &cobra.Command{
		Use:   "configure <project>",
		Short: "Add Storybook to a workspace project",
		Long: `Add Storybook to a workspace project.

Generates the workspace and project .storybook files, excludes stories from
the project tsconfig, registers the requested addons and adds the Storybook
packages to package.json at their latest published version.

Existing workspace .storybook files are always kept. Existing project files
are kept unless --overwrite is given.

Examples:
  storybook-schematic configure ui
  storybook-schematic configure ui --addons knobs,actions
  storybook-schematic configure shell --ui-framework @storybook/react --dry-run
  storybook-schematic configure shell --ui-framework html`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			flags.changed = cmd.Flags().Changed
			return runConfigure(cmd.Context(), cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.uiFramework, "ui-framework", "", "Storybook UI framework package or tag, e.g. @storybook/react or react (default from config: @storybook/angular)")
	cmd.Flags().StringSliceVar(&flags.addons, "addons", nil, "Core addons to install, by short name (e.g. knobs,actions)")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Replace existing project .storybook files")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List the changes without writing them")
	cmd.Flags().StringVar(&flags.registry, "registry", "", "npm registry URL")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Timeout of each registry request (0: none)")

	return cmd
}

// configureResultJSON is the JSON output of the configure command.
type configureResultJSON struct {
	*generator.Report
	Actions []tree.Action `json:"actions"`
	DryRun  bool          `json:"dryRun"`
}

// runConfigure is the main logic function for the configure command.
func runConfigure(ctx context.Context, w io.Writer, project string, flags *configureFlags) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	opts := generator.Options{
		Project:     project,
		UIFramework: s.config.UIFramework,
		Addons:      s.config.Addons,
		Overwrite:   flags.overwrite,
		Logger:      logger,
	}
	registryURL := s.config.Registry
	timeout := s.config.GetTimeout()

	if flags.changed("ui-framework") {
		opts.UIFramework = model.NormalizeUIFramework(flags.uiFramework)
	}
	if flags.changed("addons") {
		opts.Addons = flags.addons
	}
	if flags.changed("registry") {
		registryURL = flags.registry
	}
	if flags.changed("timeout") {
		timeout = flags.timeout
	}

	VerboseLog("Resolving packages from %s", registryURL)
	client := registry.NewClient(
		registry.WithBaseURL(registryURL),
		registry.WithTimeout(timeout),
		registry.WithLogger(logger),
	)

	report, err := generator.Configure(ctx, s.tree, s.workspace, client, opts)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to configure storybook for %q", project), err)
	}

	actions := s.tree.Actions()
	if !flags.dryRun {
		if err := s.tree.Commit(); err != nil {
			return wrapError("failed to write changes", err)
		}
		VerboseLog("Wrote %d changes", len(actions))
	}

	if IsJSONOutput() {
		return printJSON(w, configureResultJSON{Report: report, Actions: actions, DryRun: flags.dryRun})
	}

	printActions(w, actions, flags.dryRun)
	for _, dep := range report.Dependencies {
		if dep.Defaulted && !dep.Kept {
			_, _ = fmt.Fprintf(w, "%s could not resolve the latest version of %s, using %q\n",
				styles.Update.Render("WARN  "), dep.Name, dep.Version)
		}
	}
	return nil
}
