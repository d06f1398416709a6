package errors

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	errorLabel  = color.New(color.FgRed, color.Bold).SprintFunc()
	errorMsg    = color.New(color.FgRed).SprintFunc()
	causeLabel  = color.New(color.Faint).SprintFunc()
	fixLabel    = color.New(color.FgGreen, color.Bold).SprintFunc()
	usageLabel  = color.New(color.FgCyan, color.Bold).SprintFunc()
	usageText   = color.New(color.FgCyan).SprintFunc()
	bullet      = color.New(color.FgGreen).SprintFunc()
	categoryFmt = color.New(color.FgYellow).SprintFunc()
)

// FormatError formats a CLIError for the terminal, colored unless color
// output is disabled.
func FormatError(err *CLIError) string {
	if err == nil {
		return ""
	}
	return formatError(err, !color.NoColor)
}

// FormatErrorPlain formats a CLIError without colors.
func FormatErrorPlain(err *CLIError) string {
	if err == nil {
		return ""
	}
	return formatError(err, false)
}

// paint applies fn when colors are in use.
func paint(useColors bool, fn func(a ...interface{}) string, s string) string {
	if !useColors {
		return s
	}
	return fn(s)
}

func formatError(err *CLIError, useColors bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s [%s]: %s\n",
		paint(useColors, errorLabel, "Error"),
		paint(useColors, categoryFmt, err.Category.String()),
		paint(useColors, errorMsg, err.Message))

	// A wrapped cause is shown when the message does not already say it.
	if err.Err != nil && !strings.Contains(err.Message, err.Err.Error()) {
		fmt.Fprintf(&sb, "%s %s\n", paint(useColors, causeLabel, "Cause:"), err.Err)
	}

	if err.Usage != "" {
		fmt.Fprintf(&sb, "\n%s%s\n", paint(useColors, usageLabel, "Usage: "), paint(useColors, usageText, err.Usage))
	}

	if len(err.Remediation) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", paint(useColors, fixLabel, "To fix this:"))
		for _, step := range err.Remediation {
			fmt.Fprintf(&sb, "  %s %s\n", paint(useColors, bullet, "•"), step)
		}
	}

	return sb.String()
}

// FprintError prints a formatted CLIError to w.
func FprintError(w io.Writer, err *CLIError) {
	if err == nil {
		return
	}
	fmt.Fprint(w, FormatError(err))
}
