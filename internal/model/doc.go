// Package model defines the domain types and value objects for the
// storybook-schematic CLI.
//
// This package contains pure data structures with no external dependencies:
// the resolved npm package identity (NodePackage), the read-only constants
// table used by the generator, the framework and project type tags, and the
// tsconfig projection.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
