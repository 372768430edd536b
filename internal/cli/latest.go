// Package cli: latest.go implements the "storybook-schematic latest"
// command, which prints the latest published version of npm packages.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/storybook-schematic/internal/registry"
)

// latestFlags holds the flag values for the latest command.
type latestFlags struct {
	registry string
	timeout  time.Duration

	changed func(name string) bool
}

// NewLatestCommand creates the "latest" cobra command.
func NewLatestCommand() *cobra.Command {
	flags := &latestFlags{}

	cmd := &cobra.Command{
		Use:   "latest <package...>",
		Short: "Print the latest published version of npm packages",
		Long: `Print the latest published version of npm packages.

A package whose version cannot be determined is reported with the "latest"
tag, exactly as configure would record it. The registry and timeout default
to the workspace config file, as they do for configure.

Examples:
  storybook-schematic latest @storybook/angular
  storybook-schematic latest @storybook/addon-knobs @storybook/addons --json`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			flags.changed = cmd.Flags().Changed
			return runLatest(cmd.Context(), cmd.OutOrStdout(), args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.registry, "registry", "", "npm registry URL (default from config: "+registry.DefaultBaseURL+")")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Timeout of each registry request (0: none)")

	return cmd
}

// latestPackageJSON is one entry of the latest command's JSON output.
type latestPackageJSON struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Defaulted bool   `json:"defaulted"`
	Error     string `json:"error,omitempty"`
}

// runLatest resolves each package in order.
func runLatest(ctx context.Context, w io.Writer, packages []string, flags *latestFlags) error {
	cfg, err := loadConfigAnywhere()
	if err != nil {
		return err
	}
	registryURL := cfg.Registry
	timeout := cfg.GetTimeout()
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

	results := make([]latestPackageJSON, 0, len(packages))
	for _, name := range packages {
		res := client.LatestVersion(ctx, name)
		entry := latestPackageJSON{
			Name:      res.Package.Name,
			Version:   res.Package.Version,
			Defaulted: res.Defaulted,
		}
		if res.Cause != nil {
			entry.Error = res.Cause.Error()
		}
		results = append(results, entry)
	}

	if IsJSONOutput() {
		return printJSON(w, map[string]interface{}{"packages": results})
	}

	for _, r := range results {
		line := fmt.Sprintf("%s@%s", r.Name, r.Version)
		if r.Defaulted {
			line += " " + styles.Muted.Render("(default: "+r.Error+")")
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}
