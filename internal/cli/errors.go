package cli

import (
	"errors"

	"github.com/shinji-kodama/storybook-schematic/internal/generator"
	"github.com/shinji-kodama/storybook-schematic/internal/launcher"
	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/schematic"
	"github.com/shinji-kodama/storybook-schematic/internal/workspace"
)

// exitCodes maps package sentinel errors to process exit codes. The first
// match wins.
var exitCodes = []struct {
	err  error
	code model.ExitCode
}{
	{workspace.ErrWorkspaceNotFound, model.ExitWorkspaceNotFound},
	{workspace.ErrProjectNotFound, model.ExitProjectNotFound},
	{schematic.ErrFileNotFound, model.ExitFileNotFound},
	{schematic.ErrInvalidJSON, model.ExitInvalidFile},
	{schematic.ErrNotObject, model.ExitInvalidFile},
	{workspace.ErrInvalidWorkspace, model.ExitInvalidFile},
	{generator.ErrUnsupportedFramework, model.ExitUnsupportedFramework},
	{schematic.ErrMergeConflict, model.ExitMergeConflict},
	{launcher.ErrLaunchFailed, model.ExitLaunchFailed},
}

// ExitCodeFor returns the exit code for err: the code of a wrapped
// *model.CLIError, the code of the first known sentinel it wraps, or
// model.ExitGeneralError.
func ExitCodeFor(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	for _, e := range exitCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return model.ExitGeneralError
}

// wrapError turns err into a CLIError with a user-facing message and the
// exit code of its cause.
func wrapError(message string, err error) error {
	return model.WrapCLIError(ExitCodeFor(err), message, err)
}
