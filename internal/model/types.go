// Package model defines the domain types for the storybook-schematic CLI.
//
// All entities in this package are transient: they are created while a
// generation step runs, used once, and discarded. Nothing here is persisted
// other than through the files the generator writes into the workspace.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// NodePackage identifies a resolved npm package. It is produced by the
// registry client and never mutated afterwards.
type NodePackage struct {
	// Name is the npm package name, including its scope (e.g. "@storybook/angular").
	Name string `json:"name"`

	// Version is either a concrete version ("6.1.0") or the "latest" dist-tag
	// when the registry could not be queried.
	Version string `json:"version"`
}

// String returns "name@version", the notation npm uses on the command line.
func (p NodePackage) String() string {
	return p.Name + "@" + p.Version
}

// Constant values shared by the generator, the launcher and the CLI.
const (
	// JSONIndentLevel is the number of spaces used when JSON files are
	// written back into the workspace.
	JSONIndentLevel = 2

	// CoreAddonPrefix prefixes the short addon names accepted by the CLI
	// ("knobs" → "@storybook/addon-knobs").
	CoreAddonPrefix = "@storybook/addon-"

	// StorybookProjectEnv is the environment variable read by the Storybook
	// Angular preset to decide which project's build configuration to reuse.
	StorybookProjectEnv = "STORYBOOK_ANGULAR_PROJECT"

	// DefaultStorybookPort is the port used by the generated "storybook" script.
	DefaultStorybookPort = 9001
)

// AddonDependencies returns the packages every Storybook setup depends on,
// regardless of the UI framework.
func AddonDependencies() []string {
	return []string{"@storybook/addons"}
}

// TsConfigExclusions returns the patterns appended to a project's tsconfig
// "exclude" list so that stories are not compiled into the project bundle.
func TsConfigExclusions() []string {
	return []string{"stories", "**/*.stories.ts"}
}

// PkgJSONScripts returns the package.json scripts added to the workspace.
func PkgJSONScripts() map[string]string {
	return map[string]string{
		"storybook": fmt.Sprintf("start-storybook -p %d -c .storybook", DefaultStorybookPort),
	}
}

// FrameworkType is the short tag used to name a supported UI framework.
type FrameworkType string

const (
	// FrameworkAngular selects the @storybook/angular preset.
	FrameworkAngular FrameworkType = "angular"

	// FrameworkReact selects the @storybook/react preset.
	FrameworkReact FrameworkType = "react"

	// FrameworkHTML selects the @storybook/html preset.
	FrameworkHTML FrameworkType = "html"
)

// uiFrameworks maps each supported framework tag to its npm package.
// It is only reachable through the accessor functions below so callers
// cannot mutate it.
var uiFrameworks = map[FrameworkType]string{
	FrameworkAngular: "@storybook/angular",
	FrameworkReact:   "@storybook/react",
	FrameworkHTML:    "@storybook/html",
}

// String returns the string representation of FrameworkType.
func (f FrameworkType) String() string {
	return string(f)
}

// IsValid reports whether the tag names a supported framework.
func (f FrameworkType) IsValid() bool {
	_, ok := uiFrameworks[f]
	return ok
}

// UIFrameworkPackage returns the npm package for a framework tag.
func UIFrameworkPackage(f FrameworkType) (string, bool) {
	pkg, ok := uiFrameworks[f]
	return pkg, ok
}

// NormalizeUIFramework returns the package name for v, which may be either a
// package name or a framework tag such as "react". Anything else is returned
// unchanged so the caller can report it.
func NormalizeUIFramework(v string) string {
	if tag := FrameworkType(v); tag.IsValid() {
		return uiFrameworks[tag]
	}
	return v
}

// UIFrameworks returns a copy of the framework tag → package table.
func UIFrameworks() map[FrameworkType]string {
	out := make(map[FrameworkType]string, len(uiFrameworks))
	for k, v := range uiFrameworks {
		out[k] = v
	}
	return out
}

// FrameworkForPackage performs the reverse lookup: given a package name such
// as "@storybook/react" it returns FrameworkReact.
func FrameworkForPackage(pkg string) (FrameworkType, bool) {
	for tag, name := range uiFrameworks {
		if name == pkg {
			return tag, true
		}
	}
	return "", false
}

// SupportedUIFrameworks returns the sorted list of supported package names,
// used in help text and error messages.
func SupportedUIFrameworks() []string {
	names := make([]string, 0, len(uiFrameworks))
	for _, name := range uiFrameworks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FrameworkSchema is the part of the generator options that declares which
// Storybook framework package to use.
type FrameworkSchema struct {
	// UIFramework is the npm package name, e.g. "@storybook/angular".
	UIFramework string `json:"uiFramework" yaml:"uiFramework"`
}

// ProjectType distinguishes applications from libraries in a workspace.
type ProjectType string

const (
	// ProjectApplication is a deployable application project.
	ProjectApplication ProjectType = "application"

	// ProjectLibrary is a library project. Libraries have no build
	// configuration of their own, so Storybook may borrow one from an app.
	ProjectLibrary ProjectType = "library"
)

// String returns the string representation of ProjectType.
func (p ProjectType) String() string {
	return string(p)
}

// ParseProjectType converts a workspace "projectType" value to a ProjectType.
// Both the Angular CLI spelling ("application", "library") and the short
// project-graph spelling ("app", "lib") are accepted.
func ParseProjectType(s string) (ProjectType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "application", "app":
		return ProjectApplication, nil
	case "library", "lib":
		return ProjectLibrary, nil
	default:
		return "", fmt.Errorf("invalid project type: %q (valid: application, library)", s)
	}
}

// TsConfig is a read-time projection of a tsconfig.json document.
// Only the fields the generator inspects are typed; compiler options are
// kept as a generic map because their shape depends on the TypeScript version.
type TsConfig struct {
	Extends         string                 `json:"extends,omitempty"`
	CompilerOptions map[string]interface{} `json:"compilerOptions,omitempty"`
	Include         []string               `json:"include,omitempty"`
	Exclude         []string               `json:"exclude,omitempty"`
	References      []TsConfigReference    `json:"references,omitempty"`
}

// TsConfigReference is one entry of the tsconfig "references" array.
type TsConfigReference struct {
	Path string `json:"path"`
}

// ExitCode defines the process exit codes of the CLI. Scripts and CI jobs
// can use them to tell failure causes apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitWorkspaceNotFound indicates no workspace.json, angular.json or
	// nx.json was found in the current directory or its parents.
	ExitWorkspaceNotFound ExitCode = 2

	// ExitProjectNotFound indicates the named project is not part of the workspace.
	ExitProjectNotFound ExitCode = 3

	// ExitFileNotFound indicates a file required by a generation step is missing.
	ExitFileNotFound ExitCode = 4

	// ExitInvalidFile indicates a file exists but could not be parsed, or has
	// the wrong top-level shape.
	ExitInvalidFile ExitCode = 5

	// ExitUnsupportedFramework indicates the requested UI framework package
	// has no Storybook preset.
	ExitUnsupportedFramework ExitCode = 6

	// ExitMergeConflict indicates a generated file collided with an existing
	// one under a merge policy that forbids it.
	ExitMergeConflict ExitCode = 7

	// ExitLaunchFailed indicates the Storybook process could not be started
	// or exited with an error.
	ExitLaunchFailed ExitCode = 8
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
