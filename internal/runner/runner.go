// Package runner executes package scripts as external processes. Commands are
// always an executable plus an argument list; nothing is passed through a shell.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// WaitDelay bounds how long Run waits for output pipes to close after the
// process is killed on timeout or cancellation.
const WaitDelay = 2 * time.Second

// ErrTimedOut is returned when a command exceeds its timeout.
var ErrTimedOut = errors.New("command timed out")

// Command describes one process invocation.
type Command struct {
	// Path is the executable, resolved through PATH when it has no separator.
	Path string
	Args []string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env is appended to the current environment.
	Env []string
	// Timeout of zero or less disables the timeout.
	Timeout time.Duration
	// Stdin is connected to the process when set.
	Stdin io.Reader
	// Stdout receives combined output as it is produced, in addition to Result.Output.
	Stdout io.Writer
}

// Result is the structured outcome of a process that was started.
type Result struct {
	ExitCode int
	// Output is the combined stdout and stderr.
	Output   string
	TimedOut bool
	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0 && !r.TimedOut
}

// LaunchError reports a process that could not be started at all.
type LaunchError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Runner runs commands. The engine depends on this interface so tests can
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, c Command) (*Result, error)
}

// Exec is the Runner backed by os/exec.
type Exec struct{}

// Run executes c. A non-zero exit status is not an error: it is reported in
// Result.ExitCode. The error is non-nil when the process could not be
// launched (*LaunchError), exceeded its timeout (ErrTimedOut) or was
// cancelled through ctx (the context's error).
func (Exec) Run(ctx context.Context, c Command) (*Result, error) {
	return Run(ctx, c)
}

// Run executes c with the default runner.
func Run(ctx context.Context, c Command) (*Result, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.Stdin = c.Stdin
	cmd.WaitDelay = WaitDelay

	// One writer for both streams, so os/exec copies them on a single goroutine.
	var outputBuf bytes.Buffer
	var out io.Writer = &outputBuf
	if c.Stdout != nil {
		out = io.MultiWriter(&outputBuf, c.Stdout)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return &Result{ExitCode: -1}, &LaunchError{Path: c.Path, Err: err}
	}
	waitErr := cmd.Wait()

	result := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   outputBuf.String(),
		Duration: time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		return result, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		return result, fmt.Errorf("%w after %v", ErrTimedOut, c.Timeout)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// I/O failure copying output; the exit status is still meaningful.
		return result, fmt.Errorf("waiting for %s: %w", c.Path, waitErr)
	}
	return result, nil
}
