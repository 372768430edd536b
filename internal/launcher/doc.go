// Package launcher starts the Storybook dev server for a workspace project.
//
// The project whose build configuration Storybook reuses is passed to the
// child process through STORYBOOK_ANGULAR_PROJECT in its own environment;
// the CLI process environment is never modified. When no project is
// selected (a library without a lead project) the inherited environment is
// passed through untouched, including any STORYBOOK_ANGULAR_PROJECT the
// user exported.
package launcher
