package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Display shows the current stage of an operation. On a TTY the stage spins
// until the next one starts; otherwise each stage is printed as a line.
type Display struct {
	out     io.Writer
	caps    TerminalCapabilities
	symbols ProgressSymbols
	spin    *spinner.Spinner
	stage   string
}

// NewDisplay creates a display writing to out with the given capabilities.
func NewDisplay(out io.Writer, caps TerminalCapabilities) *Display {
	d := &Display{out: out, caps: caps, symbols: SelectSymbols(caps)}
	if caps.IsTTY {
		d.spin = spinner.New(spinner.CharSets[d.symbols.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(out))
	}
	return d
}

// Stage finishes the current stage, if any, and starts the next.
func (d *Display) Stage(stage string) {
	d.finish(d.symbols.Checkmark)
	d.stage = stage
	if d.spin == nil {
		fmt.Fprintln(d.out, stage)
		return
	}
	d.spin.Suffix = " " + stage
	d.spin.Start()
}

// Done marks the last stage finished.
func (d *Display) Done() {
	d.finish(d.symbols.Checkmark)
}

// Fail marks the current stage failed.
func (d *Display) Fail() {
	d.finish(d.symbols.Failure)
}

func (d *Display) finish(symbol string) {
	if d.stage == "" {
		return
	}
	if d.spin != nil {
		d.spin.Stop()
		fmt.Fprintf(d.out, "%s %s\n", symbol, d.stage)
	}
	d.stage = ""
}
