// Package schematic holds the building blocks of the Storybook generators:
// project selection, framework matching, fail-fast readers for JSON and
// TypeScript files, and the template-merge pipeline.
//
// A generation step reads a Source of template files, runs each entry
// through a list of Rules, and merges the result into a tree.Tree under a
// conflict policy:
//
//   - MergeWith fails on any existing path (ErrMergeConflict)
//   - ApplyWithOverwrite replaces existing files in place
//   - ApplyWithSkipExisting leaves existing files untouched
//
// TypeScript and JavaScript files are parsed with tree-sitter
// (github.com/smacker/go-tree-sitter); template paths are matched with
// github.com/bmatcuk/doublestar/v4.
package schematic
