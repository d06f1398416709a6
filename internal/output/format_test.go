package output

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestPrintPackage(t *testing.T) {
	tests := map[string]struct {
		active bool
		want   string
	}{
		"active":   {active: true, want: "Name: tool\nVersion: 1.0 *\n"},
		"inactive": {active: false, want: "Name: tool\nVersion: 1.0\n"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintPackage(&buf, "tool", "1.0", tt.active)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrintChoice(t *testing.T) {
	var buf bytes.Buffer
	PrintChoice(&buf, 0, "tool", "1.0", false)
	PrintChoice(&buf, 1, "tool", "2.0", true)
	assert.Equal(t, "    0,  tool: 1.0\n    1,  tool: 2.0 *\n", buf.String())
}

func TestPrintSuccessAndWarning(t *testing.T) {
	var buf bytes.Buffer
	PrintSuccess(&buf, "Uninstalled successfully!")
	PrintWarning(&buf, "remove script failed")
	assert.Equal(t, "✓ Uninstalled successfully!\nWarning: remove script failed\n", buf.String())
}

func TestPrintSection(t *testing.T) {
	var buf bytes.Buffer
	PrintSection(&buf, "Repository")
	assert.Contains(t, buf.String(), "Repository\n─")
}
