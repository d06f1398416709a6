package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bjornkeller/ModDevelopmentTools/internal/lock"
	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
	"github.com/bjornkeller/ModDevelopmentTools/internal/repository"
)

// Kind classifies an engine failure.
type Kind int

const (
	KindUnexpected Kind = iota
	KindInvalidManifest
	KindMissingFile
	KindNoInstallCandidate
	KindAlreadyInstalled
	KindErrorInInstallScript
	KindPackageNotInstalled
	KindFailedToUninstall
	KindErrorInStartScript
	KindNoDefaultVersion
	KindLocked
	KindDirectoryConflict
	KindInterrupted
)

var kindNames = map[Kind]string{
	KindUnexpected:           "Unexpected",
	KindInvalidManifest:      "InvalidManifest",
	KindMissingFile:          "MissingFile",
	KindNoInstallCandidate:   "NoInstallCandidate",
	KindAlreadyInstalled:     "AlreadyInstalled",
	KindErrorInInstallScript: "ErrorInInstallScript",
	KindPackageNotInstalled:  "PackageNotInstalled",
	KindFailedToUninstall:    "FailedToUninstall",
	KindErrorInStartScript:   "ErrorInStartScript",
	KindNoDefaultVersion:     "NoDefaultVersion",
	KindLocked:               "Locked",
	KindDirectoryConflict:    "DirectoryConflict",
	KindInterrupted:          "Interrupted",
}

// String returns the kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is. Validation and lock failures keep the sentinels of
// the package that produces them.
var (
	ErrNoInstallCandidate   = errors.New("no installation candidate")
	ErrAlreadyInstalled     = errors.New("package already installed")
	ErrErrorInInstallScript = errors.New("error in install script")
	ErrPackageNotInstalled  = errors.New("package not installed")
	ErrFailedToUninstall    = errors.New("failed to uninstall")
	ErrErrorInStartScript   = errors.New("error in start script")
	ErrNoDefaultVersion     = errors.New("no default version")
	ErrInterrupted          = errors.New("interrupted")
)

var kindSentinels = map[Kind]error{
	KindNoInstallCandidate:   ErrNoInstallCandidate,
	KindAlreadyInstalled:     ErrAlreadyInstalled,
	KindErrorInInstallScript: ErrErrorInInstallScript,
	KindPackageNotInstalled:  ErrPackageNotInstalled,
	KindFailedToUninstall:    ErrFailedToUninstall,
	KindErrorInStartScript:   ErrErrorInStartScript,
	KindNoDefaultVersion:     ErrNoDefaultVersion,
	KindInterrupted:          ErrInterrupted,
}

// Error is a typed engine failure for one package.
type Error struct {
	Kind    Kind
	Name    string
	Version string
	// Detail is appended to the message, e.g. an exit status.
	Detail string
	// Err is the underlying cause, if any.
	Err error
	// Errs holds every failure collected during best-effort cleanup.
	Errs []error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		b.WriteString(sentinel.Error())
	} else {
		b.WriteString("unexpected failure")
	}
	if e.Name != "" {
		b.WriteString(": ")
		b.WriteString(e.Name)
		if e.Version != "" {
			b.WriteString(" ")
			b.WriteString(e.Version)
		}
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, err := range e.Errs {
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the cause and every collected cleanup error.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return append(out, e.Errs...)
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

func newError(kind Kind, name, version string) *Error {
	return &Error{Kind: kind, Name: name, Version: version}
}

// KindOf classifies any error returned by the engine or the stores it uses.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnexpected
	}
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	switch {
	case errors.Is(err, manifest.ErrInvalidManifest):
		return KindInvalidManifest
	case errors.Is(err, manifest.ErrMissingFile):
		return KindMissingFile
	case errors.Is(err, lock.ErrLocked):
		return KindLocked
	case errors.Is(err, repository.ErrDirectoryConflict), errors.Is(err, repository.ErrDuplicatePackage):
		return KindDirectoryConflict
	case errors.Is(err, context.Canceled):
		return KindInterrupted
	default:
		return KindUnexpected
	}
}
