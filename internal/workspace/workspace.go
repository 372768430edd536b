// Package workspace reads the project configuration of an Nx or Angular CLI
// workspace.
//
// Workspace files are JSONC in practice (angular.json regularly carries
// comments), so this package uses github.com/tidwall/jsonc to strip comments
// and trailing commas before parsing with the standard encoding/json library.
//
// Key responsibilities:
//   - Locate the workspace root from any directory inside it
//   - Load workspace.json / angular.json, following Nx project.json references
//   - Answer project lookups (root, source root, application vs library)
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// Sentinel errors returned by this package. The CLI maps them to exit codes.
var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrInvalidWorkspace  = errors.New("invalid workspace configuration")
)

// configFiles lists the workspace configuration files in lookup order.
// workspace.json wins over angular.json when both exist, which is how Nx
// resolves them.
var configFiles = []string{"workspace.json", "angular.json"}

// rootMarkers are the files whose presence marks a workspace root.
var rootMarkers = []string{"workspace.json", "angular.json", "nx.json"}

// Target is a single architect/targets entry of a project.
type Target struct {
	// Builder is the Angular CLI builder (e.g. "@angular-devkit/build-angular:browser").
	Builder string `json:"builder,omitempty"`

	// Executor is the Nx spelling of Builder.
	Executor string `json:"executor,omitempty"`

	// Options are passed to the builder. Their shape depends on the builder.
	Options map[string]interface{} `json:"options,omitempty"`
}

// Project is one entry of the workspace "projects" map.
type Project struct {
	// Name is the key of the project in the "projects" map.
	Name string `json:"-"`

	// Root is the project directory relative to the workspace root.
	Root string `json:"root"`

	// SourceRoot is the project's source directory, usually "<root>/src".
	SourceRoot string `json:"sourceRoot,omitempty"`

	// ProjectType is the raw "projectType" value. Use Type for the parsed form.
	ProjectType string `json:"projectType,omitempty"`

	// Architect holds Angular CLI style targets.
	Architect map[string]Target `json:"architect,omitempty"`

	// Targets holds Nx style targets.
	Targets map[string]Target `json:"targets,omitempty"`

	// Type is the resolved project type. It is derived from ProjectType, or
	// from the apps/ vs libs/ directory convention when ProjectType is empty.
	Type model.ProjectType `json:"-"`
}

// Target returns the named target from either the Nx or the Angular CLI map.
func (p *Project) Target(name string) (Target, bool) {
	if t, ok := p.Targets[name]; ok {
		return t, true
	}
	t, ok := p.Architect[name]
	return t, ok
}

// TsConfigPath returns the tsconfig file the generator edits for this
// project: tsconfig.lib.json for libraries, tsconfig.app.json for apps.
func (p *Project) TsConfigPath() string {
	if p.Type == model.ProjectLibrary {
		return path.Join(p.Root, "tsconfig.lib.json")
	}
	return path.Join(p.Root, "tsconfig.app.json")
}

// StorybookDir returns the project's .storybook directory.
func (p *Project) StorybookDir() string {
	return path.Join(p.Root, ".storybook")
}

// Workspace is the parsed project configuration.
type Workspace struct {
	// ConfigPath is the file the projects were read from.
	ConfigPath string

	// Version is the workspace file format version.
	Version int

	projects map[string]*Project
}

// rawWorkspace mirrors workspace.json. Each project is kept raw because Nx
// allows either an inline object or a string pointing at a project.json.
type rawWorkspace struct {
	Version  int                        `json:"version"`
	Projects map[string]json.RawMessage `json:"projects"`
}

// Load reads the workspace configuration through the given tree.
//
// Returns an error wrapping ErrWorkspaceNotFound if neither workspace.json
// nor angular.json exists at the tree root.
func Load(t tree.Tree) (*Workspace, error) {
	var configPath string
	for _, candidate := range configFiles {
		if t.Exists(candidate) {
			configPath = candidate
			break
		}
	}
	if configPath == "" {
		return nil, fmt.Errorf("%w: no %s found", ErrWorkspaceNotFound, strings.Join(configFiles, " or "))
	}

	data, err := t.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	var raw rawWorkspace
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidWorkspace, configPath, err)
	}

	ws := &Workspace{
		ConfigPath: configPath,
		Version:    raw.Version,
		projects:   make(map[string]*Project, len(raw.Projects)),
	}

	for name, rawProject := range raw.Projects {
		project, err := decodeProject(t, name, rawProject)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid project %q in %s: %v", ErrInvalidWorkspace, name, configPath, err)
		}
		ws.projects[name] = project
	}

	return ws, nil
}

// decodeProject parses a single "projects" entry, following a string
// reference to <dir>/project.json when needed.
func decodeProject(t tree.Tree, name string, raw json.RawMessage) (*Project, error) {
	var project Project

	var ref string
	if err := json.Unmarshal(raw, &ref); err == nil {
		projectFile := path.Join(ref, "project.json")
		data, err := t.Read(projectFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", projectFile, err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), &project); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", projectFile, err)
		}
		if project.Root == "" {
			project.Root = ref
		}
	} else if err := json.Unmarshal(raw, &project); err != nil {
		return nil, err
	}

	project.Name = name
	project.Root = tree.Normalize(project.Root)

	projectType, err := resolveType(&project)
	if err != nil {
		return nil, err
	}
	project.Type = projectType

	return &project, nil
}

// resolveType derives the project type. An explicit projectType wins;
// otherwise projects under libs/ are libraries and everything else is an
// application, matching the Nx directory convention.
func resolveType(p *Project) (model.ProjectType, error) {
	if p.ProjectType != "" {
		return model.ParseProjectType(p.ProjectType)
	}
	if p.Root == "libs" || strings.HasPrefix(p.Root, "libs/") {
		return model.ProjectLibrary, nil
	}
	return model.ProjectApplication, nil
}

// Lookup returns the project with the given name.
func (w *Workspace) Lookup(name string) (*Project, error) {
	p, ok := w.projects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not defined in %s", ErrProjectNotFound, name, w.ConfigPath)
	}
	return p, nil
}

// ProjectNames returns the names of all projects, sorted.
func (w *Workspace) ProjectNames() []string {
	names := make([]string, 0, len(w.projects))
	for name := range w.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindRoot searches dir and its parents for a workspace root marker
// (workspace.json, angular.json or nx.json) and returns the first directory
// that has one.
func FindRoot(fsys afero.Fs, dir string) (string, error) {
	dir = filepath.Clean(dir)
	for {
		for _, marker := range rootMarkers {
			if info, err := fsys.Stat(filepath.Join(dir, marker)); err == nil && !info.IsDir() {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s in %s or any parent directory",
				ErrWorkspaceNotFound, strings.Join(rootMarkers, ", "), dir)
		}
		dir = parent
	}
}
