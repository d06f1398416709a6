// Package logging builds the leveled logger shared by the stores and the
// transaction engine.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w. Debug output is enabled when debug is true;
// otherwise only warnings and errors are emitted.
func New(w io.Writer, debug bool) *log.Logger {
	level := log.WarnLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "mdt",
		ReportTimestamp: debug,
	})
}

// Discard returns a logger that drops everything. Used as the default when a
// component is constructed without a logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
