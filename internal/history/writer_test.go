package history

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedHistory(t *testing.T, dir string, commands ...string) {
	t.Helper()
	h := &HistoryFile{}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, c := range commands {
		h.Entries = append(h.Entries, HistoryEntry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Command:   c,
			Duration:  "1s",
		})
	}
	require.NoError(t, SaveHistory(dir, h))
}

func commandsOf(entries []HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Command)
	}
	return out
}

func TestWriter_LogEntryTrims(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		existing   []string
		maxEntries int
		want       []string
	}{
		"empty history": {
			maxEntries: 3,
			want:       []string{"new"},
		},
		"under the cap": {
			existing:   []string{"a", "b"},
			maxEntries: 3,
			want:       []string{"a", "b", "new"},
		},
		"at the cap drops the oldest": {
			existing:   []string{"a", "b", "c"},
			maxEntries: 3,
			want:       []string{"b", "c", "new"},
		},
		"lowered cap drops several": {
			existing:   []string{"a", "b", "c", "d", "e"},
			maxEntries: 2,
			want:       []string{"e", "new"},
		},
		"zero keeps everything": {
			existing: []string{"a", "b", "c", "d"},
			want:     []string{"a", "b", "c", "d", "new"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if len(tt.existing) > 0 {
				seedHistory(t, dir, tt.existing...)
			}

			NewWriter(dir, tt.maxEntries).LogEntry(HistoryEntry{Timestamp: time.Now(), Command: "new"})

			h, err := LoadHistory(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, commandsOf(h.Entries))
		})
	}
}

func TestWriter_LogCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	NewWriter(dir, 10).LogCommand("install", "tool 1.0", 3, 1500*time.Microsecond+2*time.Second)

	h, err := LoadHistory(dir)
	require.NoError(t, err)
	require.Len(t, h.Entries, 1)

	e := h.Entries[0]
	assert.Equal(t, "install", e.Command)
	assert.Equal(t, "tool 1.0", e.Package)
	assert.Equal(t, 3, e.ExitCode)
	assert.Equal(t, "2.002s", e.Duration)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Minute)
}

func TestWriter_Concurrent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewWriter(dir, 0)

	const goroutines, each = 8, 4
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				w.LogCommand("repo", fmt.Sprintf("pkg%d", g), 0, time.Millisecond)
			}
		}(g)
	}
	wg.Wait()

	h, err := LoadHistory(dir)
	require.NoError(t, err)
	assert.Len(t, h.Entries, goroutines*each)
}

func TestWriter_FailureIsAWarning(t *testing.T) {
	t.Parallel()

	var warnings bytes.Buffer
	w := NewWriter(filepath.Join(t.TempDir(), "missing", "dir"), 0)
	w.Warnings = &warnings

	w.LogCommand("remove", "tool", 0, time.Second)

	assert.Contains(t, warnings.String(), "Warning: failed to log history")
}

func TestHistoryFile_Select(t *testing.T) {
	t.Parallel()

	h := &HistoryFile{Entries: []HistoryEntry{
		{Command: "install", Package: "tool 1.0"},
		{Command: "repo"},
		{Command: "install", Package: "toolbox 2.0"},
		{Command: "config", Package: "tool"},
		{Command: "remove", Package: "tool 2.0"},
	}}

	tests := map[string]struct {
		name string
		last int
		want []string
	}{
		"everything":             {want: []string{"install", "repo", "install", "config", "remove"}},
		"last two":               {last: 2, want: []string{"config", "remove"}},
		"by name ignores prefix": {name: "tool", want: []string{"install", "config", "remove"}},
		"by name and last":       {name: "tool", last: 1, want: []string{"remove"}},
		"limit above count":      {name: "toolbox", last: 9, want: []string{"install"}},
		"no match":               {name: "nope", want: []string{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, commandsOf(h.Select(tt.name, tt.last)))
		})
	}
}

func TestClearHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, ClearHistory(dir), "clearing a missing history is not an error")

	NewWriter(dir, 0).LogCommand("remove", "tool", 1, time.Second)
	require.FileExists(t, Path(dir))

	require.NoError(t, ClearHistory(dir))
	h, err := LoadHistory(dir)
	require.NoError(t, err)
	assert.Empty(t, h.Entries)
}

func TestLoadHistory_Corrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("entries: [unclosed\n"), 0o644))

	_, err := LoadHistory(dir)
	assert.ErrorContains(t, err, "parsing history file")
}
