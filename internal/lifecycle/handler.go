// Package lifecycle wraps CLI command execution with timing and history
// logging, eliminating boilerplate across mutating commands.
//
// The package is intentionally minimal: no event bus, no goroutines. Each
// wrapper captures the start time, executes the provided function, and
// records the outcome.
package lifecycle

import (
	"context"
	"errors"
	"time"
)

// HistoryLogger records finished commands. It is satisfied by
// *history.Writer but defined here to keep lifecycle free of storage concerns.
type HistoryLogger interface {
	LogCommand(command, pkg string, exitCode int, duration time.Duration)
}

// ExitCoder is implemented by errors that carry a process exit code.
type ExitCoder interface {
	ExitCode() int
}

// ExitCodeOf returns 0 for nil, the code of an ExitCoder in err's chain, or 1.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// RunWithHistory runs fn and records it in logger. A nil logger only times fn.
func RunWithHistory(ctx context.Context, logger HistoryLogger, command, pkg string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	if logger != nil {
		logger.LogCommand(command, pkg, ExitCodeOf(err), time.Since(start))
	}
	return err
}
