// Package workspace is the project-graph reader used by the generator and
// the launcher.
//
// It does not build a dependency graph. It only answers the questions the
// Storybook helpers ask about a project: where it lives, where its sources
// are, and whether it is an application or a library.
package workspace
