// Package output provides terminal output formatting utilities for the mdt CLI.
// This package is designed to have minimal dependencies to avoid import cycles.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ActiveMarker follows the version that is the configured default.
const ActiveMarker = "*"

// GetTerminalWidth returns the terminal width, defaulting to 80 if unavailable.
func GetTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// PrintSection prints a bold title followed by a rule no wider than the terminal.
func PrintSection(out io.Writer, title string) {
	width := min(GetTerminalWidth(), 60)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	fmt.Fprintf(out, "%s\n%s\n", bold(title), dim(strings.Repeat("─", width)))
}

// PrintPackage prints a Name/Version block. Active versions carry the marker.
func PrintPackage(out io.Writer, name, version string, active bool) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	marker := ""
	if active {
		marker = " " + green(ActiveMarker)
	}
	fmt.Fprintf(out, "Name: %s\nVersion: %s%s\n", cyan(name), version, marker)
}

// PrintChoice prints one numbered entry of an interactive version choice.
func PrintChoice(out io.Writer, index int, name, version string, active bool) {
	marker := ""
	if active {
		marker = " " + color.New(color.FgGreen, color.Bold).Sprint(ActiveMarker)
	}
	fmt.Fprintf(out, "    %d,  %s: %s%s\n", index, name, version, marker)
}

// PrintSuccess prints a colored success message.
// Uses green checkmark and cyan for the message.
func PrintSuccess(out io.Writer, message string) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(out, "%s %s\n", green("✓"), cyan(message))
}

// PrintWarning prints a yellow warning line.
func PrintWarning(out io.Writer, message string) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(out, "%s %s\n", yellow("Warning:"), message)
}
