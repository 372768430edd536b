package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/shinji-kodama/storybook-schematic/internal/config"
	"github.com/shinji-kodama/storybook-schematic/internal/tree"
	"github.com/shinji-kodama/storybook-schematic/internal/workspace"
)

// session is the workspace state shared by the commands that operate on a
// project.
type session struct {
	root      string
	tree      *tree.HostTree
	workspace *workspace.Workspace
	config    *config.Config
}

// openSession locates the workspace, loads its configuration and project
// graph, and opens a staging tree over it.
func openSession() (*session, error) {
	fsys := afero.NewOsFs()

	root, err := resolveRoot(fsys)
	if err != nil {
		return nil, wrapError("could not locate the workspace", err)
	}
	VerboseLog("Workspace root: %s", root)

	cfg, err := loadConfig(fsys, root)
	if err != nil {
		return nil, err
	}

	t := tree.NewOsTree(root)
	ws, err := workspace.Load(t)
	if err != nil {
		return nil, wrapError("could not read the workspace configuration", err)
	}
	VerboseLog("Loaded %s with %d projects", ws.ConfigPath, len(ws.ProjectNames()))

	return &session{root: root, tree: t, workspace: ws, config: cfg}, nil
}

// loadConfig reads --config, or the config file at the workspace root.
func loadConfig(fsys afero.Fs, root string) (*config.Config, error) {
	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = filepath.Join(root, config.FileName)
	}
	cfg, err := config.Load(fsys, cfgPath)
	if err != nil {
		return nil, wrapError("could not load configuration", err)
	}
	return cfg, nil
}

// loadConfigAnywhere is loadConfig for commands that do not need a
// workspace: outside of one it falls back to the defaults and the
// environment.
func loadConfigAnywhere() (*config.Config, error) {
	fsys := afero.NewOsFs()

	root, err := resolveRoot(fsys)
	if err != nil {
		if !errors.Is(err, workspace.ErrWorkspaceNotFound) {
			return nil, wrapError("could not locate the workspace", err)
		}
		if configFile == "" {
			VerboseLog("No workspace found, using the default configuration")
			return config.FromEnv(), nil
		}
	}
	return loadConfig(fsys, root)
}

// resolveRoot returns --workspace when given, otherwise the nearest
// workspace root above the current directory.
func resolveRoot(fsys afero.Fs) (string, error) {
	if workspaceDir != "" {
		return filepath.Abs(workspaceDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return workspace.FindRoot(fsys, cwd)
}
