// Package build holds the version stamped into the mdt binary. It imports
// no other internal package.
package build

import (
	"fmt"
	"runtime"
)

var (
	// Set with -ldflags "-X .../internal/build.Version=..." by release builds.
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// IsDevBuild reports whether the binary was built without release ldflags.
func IsDevBuild() bool {
	return Version == "dev"
}

// Info is a one-line description of the build.
func Info() string {
	return fmt.Sprintf("mdt %s (commit %s, built %s, %s/%s)", Version, Commit, BuildDate, runtime.GOOS, runtime.GOARCH)
}
