package generator

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/registry"
	"github.com/shinji-kodama/storybook-schematic/internal/schematic"
	"github.com/shinji-kodama/storybook-schematic/internal/tree"
	"github.com/shinji-kodama/storybook-schematic/internal/workspace"
)

// templates holds the generated .storybook files. The "all:" prefix is
// required because every template lives under a dot directory.
//
//go:embed all:files
var templates embed.FS

const (
	rootTemplates    = "files/root"
	projectTemplates = "files/project"

	rootAddonsFile  = ".storybook/addons.js"
	packageJSONFile = "package.json"
)

// ErrUnsupportedFramework is returned when Options.UIFramework is not one of
// model.SupportedUIFrameworks.
var ErrUnsupportedFramework = errors.New("unsupported UI framework")

// VersionFetcher resolves the latest published version of a package.
// *registry.Client satisfies it.
type VersionFetcher interface {
	LatestVersion(ctx context.Context, packageName string) registry.Result
}

// Options controls a Configure run.
type Options struct {
	// Project is the workspace project Storybook is added to.
	Project string

	// UIFramework is the Storybook package of the UI framework,
	// e.g. "@storybook/angular".
	UIFramework string

	// Addons are core addon short names ("knobs", "actions"). Each becomes
	// a "@storybook/addon-<name>" dependency registered in addons.js.
	Addons []string

	// Overwrite replaces existing project .storybook files instead of
	// keeping them.
	Overwrite bool

	// Logger receives progress at debug level. Nil means no logging.
	Logger *zap.Logger
}

// Dependency is the outcome of one package.json entry.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	// Defaulted is set when the registry lookup fell back to "latest".
	Defaulted bool `json:"defaulted,omitempty"`

	// Kept is set when an existing entry was left in place.
	Kept bool `json:"kept,omitempty"`
}

// Report summarizes a Configure run. File changes are read from the tree's
// action log.
type Report struct {
	Project      string              `json:"project"`
	Framework    model.FrameworkType `json:"framework"`
	Dependencies []Dependency        `json:"dependencies"`
}

// Configure wires Storybook into a project of the workspace.
//
// All changes are staged in t; nothing reaches the disk until the caller
// commits the tree. Steps run in order and the first failure aborts the run:
//
//  1. validate the UI framework
//  2. create the workspace .storybook files, keeping existing ones
//  3. create the project .storybook files (replaced when Overwrite is set)
//  4. exclude stories from the project tsconfig
//  5. register the addons in .storybook/addons.js
//  6. add the devDependencies and scripts to package.json
func Configure(ctx context.Context, t tree.Tree, lookup schematic.ProjectLookup, fetcher VersionFetcher, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	framework, ok := model.FrameworkForPackage(opts.UIFramework)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFramework, opts.UIFramework, strings.Join(model.SupportedUIFrameworks(), ", "))
	}

	project, err := lookup.Lookup(opts.Project)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuring storybook",
		zap.String("project", project.Name),
		zap.String("root", project.Root),
		zap.Stringer("type", project.Type),
		zap.Stringer("framework", framework))

	vars := templateVars(t, project, opts.UIFramework)

	projectStep := schematic.ApplyWithSkipExisting
	if opts.Overwrite {
		projectStep = schematic.ApplyWithOverwrite
	}

	err = schematic.Chain(
		schematic.ApplyWithSkipExisting(schematic.URL(templates, rootTemplates),
			schematic.Template(vars)),
		projectStep(schematic.URL(templates, projectTemplates),
			schematic.Template(vars), schematic.Move(project.Root)),
		func(t tree.Tree) error { return excludeStories(t, project.TsConfigPath()) },
		func(t tree.Tree) error { return registerAddons(t, addonPackages(opts.Addons)) },
	)(t)
	if err != nil {
		return nil, err
	}

	deps, err := addDependencies(ctx, t, fetcher, dependencyNames(opts.UIFramework, opts.Addons), logger)
	if err != nil {
		return nil, err
	}

	return &Report{Project: project.Name, Framework: framework, Dependencies: deps}, nil
}

// Clean deletes the project's generated .storybook files and returns the
// paths that were actually removed. The workspace-wide .storybook directory
// is shared by every project and left alone.
func Clean(t tree.Tree, lookup schematic.ProjectLookup, projectName string) ([]string, error) {
	project, err := lookup.Lookup(projectName)
	if err != nil {
		return nil, err
	}

	stripSuffix := schematic.ForEach(func(e schematic.FileEntry) *schematic.FileEntry {
		e.Path = strings.TrimSuffix(e.Path, ".template")
		return &e
	})
	entries, err := schematic.Apply(schematic.URL(templates, projectTemplates),
		stripSuffix, schematic.Move(project.Root))()
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, e := range entries {
		ok, err := schematic.SafeFileDelete(t, e.Path)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted = append(deleted, e.Path)
		}
	}
	return deleted, nil
}

// templateVars returns the data the templates are rendered with.
func templateVars(t tree.Tree, project *workspace.Project, uiFramework string) map[string]interface{} {
	storiesDir := "app"
	if project.Type == model.ProjectLibrary {
		storiesDir = "lib"
	}

	rootTsConfig := "tsconfig.json"
	if t.Exists("tsconfig.base.json") {
		rootTsConfig = "tsconfig.base.json"
	}

	return map[string]interface{}{
		"uiFramework":    uiFramework,
		"projectName":    project.Name,
		"projectRoot":    project.Root,
		"offsetFromRoot": offsetFromRoot(project.Root),
		"storiesDir":     storiesDir,
		"tsConfigFile":   path.Base(project.TsConfigPath()),
		"rootTsConfig":   rootTsConfig,
	}
}

// offsetFromRoot returns the relative path from dir back to the workspace
// root: "libs/ui" gives "../../".
func offsetFromRoot(dir string) string {
	dir = tree.Normalize(dir)
	if dir == "" {
		return ""
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1)
}

// addonPackages maps addon short names to their package names, dropping
// duplicates. Names that already carry the prefix are kept as is.
func addonPackages(addons []string) []string {
	seen := make(map[string]bool, len(addons))
	var pkgs []string
	for _, addon := range addons {
		addon = strings.TrimSpace(addon)
		if addon == "" {
			continue
		}
		pkg := addon
		if !strings.HasPrefix(pkg, model.CoreAddonPrefix) {
			pkg = model.CoreAddonPrefix + addon
		}
		if !seen[pkg] {
			seen[pkg] = true
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs
}

// dependencyNames lists the packages added to devDependencies, in the order
// they are resolved.
func dependencyNames(uiFramework string, addons []string) []string {
	names := []string{uiFramework}
	names = append(names, model.AddonDependencies()...)
	return append(names, addonPackages(addons)...)
}
