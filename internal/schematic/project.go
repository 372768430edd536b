package schematic

import (
	"fmt"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/workspace"
)

// BuildTarget identifies the target a Storybook run was started for, in the
// "project:target:configuration" form the Angular CLI uses.
type BuildTarget struct {
	Project       string
	Target        string
	Configuration string
}

// String returns the target in "project:target[:configuration]" form.
func (b BuildTarget) String() string {
	s := b.Project
	if b.Target != "" {
		s += ":" + b.Target
	}
	if b.Configuration != "" {
		if b.Target == "" {
			s += ":"
		}
		s += ":" + b.Configuration
	}
	return s
}

// ProjectLookup is the project-graph query the resolver needs.
// *workspace.Workspace satisfies it.
type ProjectLookup interface {
	Lookup(name string) (*workspace.Project, error)
}

// SelectProject decides whose build configuration Storybook reuses.
//
// Applications always use themselves. Libraries have no build configuration,
// so they use leadProject when one was given and nothing otherwise; the
// second return value is false in that case.
func SelectProject(projectName string, projectType model.ProjectType, leadProject string) (string, bool) {
	if projectType == model.ProjectLibrary {
		if leadProject != "" {
			return leadProject, true
		}
		return "", false
	}
	return projectName, true
}

// Resolution is the outcome of ResolveStorybookProject.
type Resolution struct {
	// Target is the build target the resolution was made for.
	Target BuildTarget

	// Project is the workspace entry of Target.Project.
	Project *workspace.Project

	// Selected is the project whose build configuration Storybook reuses,
	// or "" when none applies.
	Selected string
}

// ResolveStorybookProject looks the target project up and applies
// SelectProject to it.
func ResolveStorybookProject(lookup ProjectLookup, target BuildTarget, leadProject string) (*Resolution, error) {
	project, err := lookup.Lookup(target.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storybook project for %s: %w", target, err)
	}
	selected, _ := SelectProject(project.Name, project.Type, leadProject)
	return &Resolution{Target: target, Project: project, Selected: selected}, nil
}
