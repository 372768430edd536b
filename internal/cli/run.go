// Package cli: run.go implements the "storybook-schematic run" command,
// which starts the Storybook dev server of a project.
//
// For a library, Storybook reuses the build configuration of the lead
// application given with --lead-project (or leadProject in the config
// file). The selection reaches Storybook through STORYBOOK_ANGULAR_PROJECT
// in the child process environment.
package cli

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/storybook-schematic/internal/launcher"
	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/port"
	"github.com/shinji-kodama/storybook-schematic/internal/schematic"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	leadProject   string
	port          int
	target        string
	configuration string
	dryRun        bool

	changed func(name string) bool
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <project>",
		Short: "Start the Storybook dev server of a project",
		Long: `Start the Storybook dev server of a project.

The server listens on the configured port (9001 by default), or on the next
free port when it is taken.

Examples:
  storybook-schematic run shell
  storybook-schematic run ui --lead-project shell
  storybook-schematic run ui --port 6006 --dry-run`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			flags.changed = cmd.Flags().Changed
			return runRun(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.leadProject, "lead-project", "", "Application whose build configuration a library reuses")
	cmd.Flags().IntVarP(&flags.port, "port", "p", model.DefaultStorybookPort, "Preferred dev server port")
	cmd.Flags().StringVar(&flags.target, "target", "storybook", "Target name reported for the run")
	cmd.Flags().StringVarP(&flags.configuration, "configuration", "c", "", "Build configuration reported for the run")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the command instead of running it")

	return cmd
}

// storybookConfigFile is the project file that marks Storybook as
// configured.
const storybookConfigFile = "config.js"

// runResultJSON is the JSON output of a dry run.
type runResultJSON struct {
	Project          string   `json:"project"`
	Target           string   `json:"target"`
	Configuration    string   `json:"configuration,omitempty"`
	StorybookProject string   `json:"storybookProject,omitempty"`
	Port             int      `json:"port"`
	ConfigDir        string   `json:"configDir"`
	Command          []string `json:"command"`
}

// runRun is the main logic function for the run command.
func runRun(ctx context.Context, stdout, stderr io.Writer, project string, flags *runFlags) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	opts := launcher.PlanOptions{
		WorkspaceRoot: s.root,
		Target: schematic.BuildTarget{
			Project:       project,
			Target:        flags.target,
			Configuration: flags.configuration,
		},
		LeadProject: s.config.LeadProject,
		Port:        s.config.Port,
	}
	if flags.changed("lead-project") {
		opts.LeadProject = flags.leadProject
	}
	if flags.changed("port") {
		opts.Port = flags.port
	}

	cfg, err := launcher.Plan(s.workspace, port.NewScanner(), opts)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to prepare storybook for %q", project), err)
	}
	VerboseLog("Planned %s on port %d", cfg.Target, cfg.Port)
	if cfg.Project == "" {
		VerboseLog("No build configuration selected for %q; %s is left as is", project, model.StorybookProjectEnv)
	}
	if !s.tree.Exists(path.Join(cfg.ConfigDir, storybookConfigFile)) {
		return model.NewCLIError(model.ExitFileNotFound, fmt.Sprintf(
			"%s has no Storybook configuration in %s; run \"storybook-schematic configure %s\" first",
			project, cfg.ConfigDir, project))
	}
	if cfg.Port != opts.Port && opts.Port != 0 {
		VerboseLog("Port %d is in use, using %d", opts.Port, cfg.Port)
	}

	if flags.dryRun {
		cmd := launcher.Build(ctx, cfg)
		if IsJSONOutput() {
			return printJSON(stdout, runResultJSON{
				Project:          project,
				Target:           cfg.Target.String(),
				Configuration:    cfg.Target.Configuration,
				StorybookProject: cfg.Project,
				Port:             cfg.Port,
				ConfigDir:        cfg.ConfigDir,
				Command:          cmd.Args,
			})
		}
		prefix := ""
		if cfg.Project != "" {
			prefix = model.StorybookProjectEnv + "=" + cfg.Project + " "
		}
		_, _ = fmt.Fprintf(stdout, "%s%s\n", prefix, strings.Join(cmd.Args, " "))
		return nil
	}

	_, _ = fmt.Fprintf(stderr, "%s Storybook for %s on http://localhost:%d\n",
		styles.Header.Render("Starting"), project, cfg.Port)

	cfg.Stdout = stdout
	cfg.Stderr = stderr
	if err := launcher.Run(ctx, cfg); err != nil {
		return wrapError(fmt.Sprintf("storybook for %q exited with an error", project), err)
	}
	return nil
}
