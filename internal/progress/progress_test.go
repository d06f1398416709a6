package progress

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectSymbols(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		caps TerminalCapabilities
		want ProgressSymbols
	}{
		"unicode": {
			caps: TerminalCapabilities{IsTTY: true, SupportsUnicode: true},
			want: ProgressSymbols{Checkmark: "✓", Failure: "✗", SpinnerSet: 14},
		},
		"ascii": {
			caps: TerminalCapabilities{},
			want: ProgressSymbols{Checkmark: "[OK]", Failure: "[FAIL]", SpinnerSet: 9},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SelectSymbols(tt.caps))
		})
	}
}

func TestDetect_NotATerminal(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := map[string]struct {
		w io.Writer
	}{
		"regular file": {w: f},
		"buffer":       {w: &bytes.Buffer{}},
		"nil writer":   {w: nil},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, TerminalCapabilities{}, Detect(tt.w))
		})
	}
}

func TestDisplay_PlainOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	d := NewDisplay(&buf, TerminalCapabilities{})
	d.Stage("Downloading repository from URL...")
	d.Stage("Extracting repository-update.zip...")
	d.Fail()
	d.Done()

	assert.Equal(t, "Downloading repository from URL...\nExtracting repository-update.zip...\n", buf.String())
}
