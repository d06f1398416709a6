// Package errors turns failures into categorized CLI errors that tell the
// user what to do next. The category also selects the process exit code.
package errors

import (
	stderrors "errors"
)

// ErrorCategory classifies a CLI failure.
type ErrorCategory int

const (
	// Argument errors can be fixed by changing the command line, including
	// naming a package or version that exists.
	Argument ErrorCategory = iota
	// Configuration errors come from config.yml, config.json or MDT_* variables.
	Configuration
	// Prerequisite errors need something outside mdt fixed first, such as
	// root privileges or a broken package in the repository.
	Prerequisite
	// Runtime errors happened while the operation ran.
	Runtime
)

var categoryNames = map[ErrorCategory]string{
	Argument:      "Argument Error",
	Configuration: "Configuration Error",
	Prerequisite:  "Prerequisite Error",
	Runtime:       "Runtime Error",
}

// String returns a human-readable name for the error category.
func (c ErrorCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Error"
}

// CLIError is a failure with a category and remediation steps.
type CLIError struct {
	Category ErrorCategory
	// Message says what went wrong.
	Message string
	// Remediation lists steps that resolve the error.
	Remediation []string
	// Usage is the correct command syntax, for argument errors.
	Usage string
	// Err is the underlying cause, if any.
	Err error
}

// Error returns the message, followed by the cause when the message does not
// already state it.
func (e *CLIError) Error() string {
	if e.Err == nil || e.Message == e.Err.Error() {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewArgumentError creates an argument error.
func NewArgumentError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Argument, Message: message, Remediation: remediation}
}

// NewArgumentErrorWithUsage creates an argument error that shows the correct syntax.
func NewArgumentErrorWithUsage(message, usage string, remediation ...string) *CLIError {
	return &CLIError{Category: Argument, Message: message, Usage: usage, Remediation: remediation}
}

// NewPrerequisiteError creates a prerequisite error.
func NewPrerequisiteError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Prerequisite, Message: message, Remediation: remediation}
}

// Wrap categorizes err, keeping its message.
func Wrap(err error, category ErrorCategory, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	return &CLIError{Category: category, Message: err.Error(), Remediation: remediation, Err: err}
}

// WrapWithMessage categorizes err under a message of its own. The cause is
// kept in Err and shown separately.
func WrapWithMessage(err error, category ErrorCategory, message string, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	return &CLIError{Category: category, Message: message, Remediation: remediation, Err: err}
}

// IsCLIError reports whether err is, or wraps, a CLIError.
func IsCLIError(err error) bool {
	return AsCLIError(err) != nil
}

// AsCLIError returns the first CLIError in err's chain, or nil.
func AsCLIError(err error) *CLIError {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return cliErr
	}
	return nil
}
