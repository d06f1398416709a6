package cli

import (
	"errors"

	"github.com/bjornkeller/ModDevelopmentTools/internal/engine"
	clierrors "github.com/bjornkeller/ModDevelopmentTools/internal/errors"
	"github.com/bjornkeller/ModDevelopmentTools/internal/lifecycle"
)

// Exit codes for the mdt CLI
// These codes support programmatic composition and scripting
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitFailure indicates the operation failed
	ExitFailure = 1

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 2

	// ExitMissingPrerequisite indicates a missing prerequisite, such as root privileges
	ExitMissingPrerequisite = 3

	// ExitConfiguration indicates the configuration could not be loaded
	ExitConfiguration = 4

	// ExitLocked indicates another mdt process holds the installation root
	ExitLocked = 5

	// ExitInterrupted indicates the command was cancelled by a signal
	ExitInterrupted = 130
)

// reportedError is a failure already shown to the user, e.g. as an ERR: line.
type reportedError struct {
	err  error
	code int
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
func (e *reportedError) ExitCode() int { return e.code }

func reported(err error) error {
	return &reportedError{err: err, code: exitCodeFor(err)}
}

func isReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var coder lifecycle.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	switch engine.KindOf(err) {
	case engine.KindLocked:
		return ExitLocked
	case engine.KindInterrupted:
		return ExitInterrupted
	}
	if cliErr := clierrors.FromEngine(err); cliErr != nil {
		switch cliErr.Category {
		case clierrors.Argument:
			return ExitInvalidArguments
		case clierrors.Prerequisite:
			return ExitMissingPrerequisite
		case clierrors.Configuration:
			return ExitConfiguration
		}
	}
	return ExitFailure
}
