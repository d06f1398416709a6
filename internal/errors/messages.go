package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/bjornkeller/ModDevelopmentTools/internal/engine"
	"github.com/bjornkeller/ModDevelopmentTools/internal/lock"
)

// Common error messages for the mdt CLI.
// These templates ensure consistent, actionable error messages.

// RootRequired creates an error for a mutating command run by a non-root user
// while require_root is set.
func RootRequired(command string) *CLIError {
	return NewPrerequisiteError(
		fmt.Sprintf("you must be root to run this command: mdt %s", command),
		"Re-run with sudo",
		"Or set \"root\": false in <root>/config.json",
	)
}

// MissingUpdateURL creates an error for 'mdt update' with no URL to use.
func MissingUpdateURL() *CLIError {
	return NewArgumentErrorWithUsage(
		"no update URL given and none configured",
		"mdt update [URL] | mdt update --git URL [--ref REF]",
		"Pass the archive URL as an argument",
		"Or set update_url in ~/.config/mdt/config.yml or \"url\" in <root>/config.json",
	)
}

// ConfigLoadError creates an error for configuration that could not be loaded.
func ConfigLoadError(err error) *CLIError {
	return WrapWithMessage(err, Configuration,
		"failed to load configuration",
		"Check ~/.config/mdt/config.yml for YAML syntax errors",
		"Check <root>/config.json for JSON syntax errors",
		"Print the template with: mdt settings template",
	)
}

// InvalidFlagCombination creates an error for incompatible flag combinations.
func InvalidFlagCombination(flags string, reason string) *CLIError {
	return NewArgumentError(
		fmt.Sprintf("invalid flag combination: %s", flags),
		reason,
		"Use 'mdt <command> --help' to see valid options",
	)
}

// Locked creates an error for an installation root held by another process.
func Locked(err *lock.LockedError) *CLIError {
	remediation := []string{"Wait for the other mdt command to finish and retry"}
	if err.Holder != nil {
		remediation = append(remediation, fmt.Sprintf("Check the holder with: ps -p %d", err.Holder.PID))
	}
	remediation = append(remediation, "Run 'mdt doctor' to see the lock status")
	return &CLIError{Category: Runtime, Message: err.Error(), Remediation: remediation, Err: err}
}

// FromEngine converts an engine failure into a CLIError with remediation for
// its kind. Errors that are already CLIErrors are returned unchanged.
func FromEngine(err error) *CLIError {
	if err == nil {
		return nil
	}
	if cliErr := AsCLIError(err); cliErr != nil {
		return cliErr
	}

	var lockErr *lock.LockedError
	if stderrors.As(err, &lockErr) {
		return Locked(lockErr)
	}

	switch engine.KindOf(err) {
	case engine.KindNoInstallCandidate:
		return Wrap(err, Argument,
			"Check the name and version with: mdt search <name>",
			"Refresh the repository with: mdt update",
		)
	case engine.KindAlreadyInstalled:
		return Wrap(err, Argument,
			"Reinstall with: mdt install <name> -v <version> --reinstall",
		)
	case engine.KindPackageNotInstalled:
		return Wrap(err, Argument,
			"See installed packages with: mdt list",
		)
	case engine.KindNoDefaultVersion:
		return Wrap(err, Argument,
			"Pass a version with -v <version>",
			"Or choose a default with: mdt config <name>",
		)
	case engine.KindInvalidManifest, engine.KindMissingFile:
		return Wrap(err, Prerequisite,
			"Fix the package's manifest.json and the scripts it names",
			"Run 'mdt doctor' to list invalid packages",
		)
	case engine.KindErrorInInstallScript, engine.KindErrorInStartScript:
		return Wrap(err, Runtime,
			"Re-run with --debug to see the script invocation",
			"Run 'mdt doctor' to check the script runtime",
		)
	case engine.KindFailedToUninstall:
		return Wrap(err, Runtime,
			"Check permissions on the installation root",
			"Run 'mdt doctor' to find leftover directories",
		)
	case engine.KindDirectoryConflict:
		return Wrap(err, Argument,
			"Rename the conflicting package directories in the update source",
			"Or replace the whole catalog with --clear",
		)
	case engine.KindInterrupted:
		return Wrap(err, Runtime)
	default:
		return Wrap(err, Runtime,
			"Re-run with --debug for details",
		)
	}
}
