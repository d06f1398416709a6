package history

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Writer appends entries to the history in Dir, keeping at most MaxEntries.
// It is safe for concurrent use within one process; across processes the
// installation root lock serialises writers.
type Writer struct {
	Dir string
	// MaxEntries caps the file length. Zero keeps everything.
	MaxEntries int
	// Warnings receives failures to record; nil means stderr.
	Warnings io.Writer

	mu sync.Mutex
}

// NewWriter returns a Writer for the history file in dir.
func NewWriter(dir string, maxEntries int) *Writer {
	return &Writer{Dir: dir, MaxEntries: maxEntries}
}

// LogEntry records entry. History is advisory, so a failure is printed as a
// warning instead of failing the command that produced it.
func (w *Writer) LogEntry(entry HistoryEntry) {
	w.mu.Lock()
	err := w.append(entry)
	w.mu.Unlock()
	if err == nil {
		return
	}
	out := w.Warnings
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "Warning: failed to log history: %v\n", err)
}

func (w *Writer) append(entry HistoryEntry) error {
	h, err := LoadHistory(w.Dir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	h.Entries = keepLast(append(h.Entries, entry), w.MaxEntries)
	if err := SaveHistory(w.Dir, h); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// LogCommand records a finished command; it satisfies lifecycle.HistoryLogger.
func (w *Writer) LogCommand(command, pkg string, exitCode int, duration time.Duration) {
	w.LogEntry(HistoryEntry{
		Timestamp: time.Now(),
		Command:   command,
		Package:   pkg,
		ExitCode:  exitCode,
		Duration:  duration.Round(time.Millisecond).String(),
	})
}

// PackageName is the package the entry acted on, without its version.
func (e HistoryEntry) PackageName() string {
	name, _, _ := strings.Cut(e.Package, " ")
	return name
}

// Select returns entries for the named package (all when name is empty),
// limited to the most recent last entries when last is positive.
func (h *HistoryFile) Select(name string, last int) []HistoryEntry {
	var out []HistoryEntry
	for _, e := range h.Entries {
		if name == "" || e.PackageName() == name {
			out = append(out, e)
		}
	}
	return keepLast(out, last)
}

func keepLast(entries []HistoryEntry, n int) []HistoryEntry {
	if n > 0 && len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}
