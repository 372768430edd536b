// launcher.go plans and runs the Storybook dev server:
//
//	STORYBOOK_ANGULAR_PROJECT=<project> npx start-storybook -p <port> -c <dir>
//
// Plan decides the project selection and the port, Build turns the plan
// into an *exec.Cmd, and Run executes it in the foreground. The selection
// only ever reaches the child environment.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/schematic"
)

const (
	// DefaultCommand runs the Storybook binary installed in the workspace.
	DefaultCommand = "npx"

	// DefaultPortAttempts is how many ports from the preferred one upward
	// Plan tries before giving up.
	DefaultPortAttempts = 100
)

// ErrLaunchFailed wraps every failure to start or run the dev server.
var ErrLaunchFailed = errors.New("storybook launch failed")

// LaunchConfig describes one dev server invocation.
type LaunchConfig struct {
	// WorkspaceRoot is the working directory of the child process.
	WorkspaceRoot string

	// ConfigDir is the .storybook directory passed with -c, relative to
	// WorkspaceRoot.
	ConfigDir string

	// Port is the dev server port.
	Port int

	// Target is the build target the run was planned for.
	Target schematic.BuildTarget

	// Project is the project whose build configuration Storybook reuses.
	// Empty means none was selected and the environment is left as is.
	Project string

	// Command replaces DefaultCommand when set.
	Command string

	// BaseEnv is the environment the child inherits. Nil means os.Environ().
	BaseEnv []string

	Stdout io.Writer
	Stderr io.Writer
}

// PortResolver picks a free port. *port.Scanner satisfies it.
type PortResolver interface {
	Resolve(preferred, attempts int) (int, error)
}

// PlanOptions are the inputs of Plan.
type PlanOptions struct {
	WorkspaceRoot string
	Target        schematic.BuildTarget

	// LeadProject is the application a library's Storybook borrows its
	// build configuration from.
	LeadProject string

	// Port is the preferred port; zero means model.DefaultStorybookPort.
	Port int

	// PortAttempts bounds the search for a free port; zero means
	// DefaultPortAttempts.
	PortAttempts int
}

// Plan resolves the project selection and the port for a Storybook run of
// opts.Target.
//
// The target project is looked up through schematic.ResolveStorybookProject:
// an application selects itself, a library selects opts.LeadProject or
// nothing. The port is opts.Port (model.DefaultStorybookPort when zero) or,
// when that is taken, the next free one found by ports within
// opts.PortAttempts tries.
//
// Lookup errors are returned as they are, so workspace.ErrProjectNotFound
// stays matchable. Port failures are wrapped in ErrLaunchFailed.
func Plan(lookup schematic.ProjectLookup, ports PortResolver, opts PlanOptions) (LaunchConfig, error) {
	res, err := schematic.ResolveStorybookProject(lookup, opts.Target, opts.LeadProject)
	if err != nil {
		return LaunchConfig{}, err
	}

	preferred := opts.Port
	if preferred == 0 {
		preferred = model.DefaultStorybookPort
	}
	attempts := opts.PortAttempts
	if attempts == 0 {
		attempts = DefaultPortAttempts
	}
	p, err := ports.Resolve(preferred, attempts)
	if err != nil {
		return LaunchConfig{}, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	return LaunchConfig{
		WorkspaceRoot: opts.WorkspaceRoot,
		ConfigDir:     res.Project.StorybookDir(),
		Port:          p,
		Target:        res.Target,
		Project:       res.Selected,
	}, nil
}

// Build returns the dev server command for cfg without starting it:
//
//	npx start-storybook -p <port> -c <configDir>
//
// The command runs in cfg.WorkspaceRoot with the environment from Environ.
// A nil cfg.Stdout or cfg.Stderr discards that stream, as exec.Cmd does.
// Cancelling ctx kills the process.
func Build(ctx context.Context, cfg LaunchConfig) *exec.Cmd {
	command := cfg.Command
	if command == "" {
		command = DefaultCommand
	}

	cmd := exec.CommandContext(ctx, command,
		"start-storybook",
		"-p", strconv.Itoa(cfg.Port),
		"-c", filepath.ToSlash(cfg.ConfigDir),
	)
	cmd.Dir = cfg.WorkspaceRoot
	cmd.Env = Environ(cfg.BaseEnv, cfg.Project)
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr
	return cmd
}

// Run starts the dev server and waits for it to exit.
func Run(ctx context.Context, cfg LaunchConfig) error {
	cmd := Build(ctx, cfg)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLaunchFailed, strings.Join(cmd.Args, " "), err)
	}
	return nil
}

// Environ returns the child environment for project.
//
// base (os.Environ() when nil) is returned unchanged when project is empty:
// no selection means no side effect, so a value the user exported is passed
// through. Otherwise any inherited model.StorybookProjectEnv entry is
// replaced with one naming project. base itself is never modified.
func Environ(base []string, project string) []string {
	if base == nil {
		base = os.Environ()
	}
	if project == "" {
		return base
	}

	prefix := model.StorybookProjectEnv + "="
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if !strings.HasPrefix(kv, prefix) {
			env = append(env, kv)
		}
	}
	return append(env, prefix+project)
}
