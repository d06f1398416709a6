package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidManifest matches any schema or type violation.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrMissingFile matches any referenced script or icon that does not exist.
	ErrMissingFile = errors.New("missing file")
)

// InvalidManifestError reports a manifest that is missing, unparsable or has a
// field of the wrong type.
type InvalidManifestError struct {
	// Dir is the package directory that was validated.
	Dir string
	// Field is the offending field, empty when the file itself is unusable.
	Field string
	// Reason is a human-readable description.
	Reason string
	// Err is the underlying read or parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *InvalidManifestError) Error() string {
	msg := "invalid manifest in " + e.Dir
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *InvalidManifestError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidManifest) succeed.
func (e *InvalidManifestError) Is(target error) bool {
	return target == ErrInvalidManifest
}

// MissingFileError reports a referenced script or icon that does not resolve
// to an existing file inside the package directory.
type MissingFileError struct {
	Dir   string
	Field string
	Path  string
	// Reason is the human-readable reason, e.g. "no install script found".
	Reason string
}

// Error implements the error interface.
func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Dir, e.Reason, e.Path)
}

// Is makes errors.Is(err, ErrMissingFile) succeed.
func (e *MissingFileError) Is(target error) bool {
	return target == ErrMissingFile
}

func invalid(dir, field, reason string) *InvalidManifestError {
	return &InvalidManifestError{Dir: dir, Field: field, Reason: reason}
}
