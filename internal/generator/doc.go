// Package generator adds Storybook to a project of an Nx or Angular CLI
// workspace and removes it again.
//
// Configure renders the embedded .storybook templates into the workspace
// and the project, excludes stories from the project tsconfig, registers
// addons and records the Storybook packages in package.json with versions
// resolved from the npm registry. Clean deletes the project files.
//
// Both operate on a tree.Tree, so callers decide whether the staged
// changes are committed or only reported (dry run).
package generator
