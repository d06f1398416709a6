package progress

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Environment switches read by Detect.
const (
	envNoColor = "NO_COLOR"
	envASCII   = "MDT_ASCII"
)

// fder is implemented by *os.File and anything else backed by a descriptor.
type fder interface {
	Fd() uintptr
}

// Detect reports what w can render. Writers without a file descriptor, such
// as buffers and pipes captured by tests, are plain non-interactive output.
func Detect(w io.Writer) TerminalCapabilities {
	f, ok := w.(fder)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return TerminalCapabilities{}
	}

	caps := TerminalCapabilities{
		IsTTY:           true,
		SupportsColor:   os.Getenv(envNoColor) == "",
		SupportsUnicode: os.Getenv(envASCII) != "1",
	}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil {
		caps.Width = width
	}
	return caps
}

// SelectSymbols picks stage markers and the spinner set. Terminals that
// cannot render unicode get bracketed words and a |/-\ spinner.
func SelectSymbols(caps TerminalCapabilities) ProgressSymbols {
	if !caps.SupportsUnicode {
		return ProgressSymbols{Checkmark: "[OK]", Failure: "[FAIL]", SpinnerSet: 9}
	}
	// braille dots
	return ProgressSymbols{Checkmark: "✓", Failure: "✗", SpinnerSet: 14}
}
