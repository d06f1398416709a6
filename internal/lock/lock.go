// Package lock serializes mutating commands against one installation root
// with an exclusive advisory lock on <root>/.mdt.lock. The lock is released by
// the kernel when the holding process exits, so a crashed run never leaves the
// root locked; the YAML metadata in the file only describes the holder.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"gopkg.in/yaml.v3"
)

// FileName is the lock file created in the installation root.
const FileName = ".mdt.lock"

var (
	// ErrLocked matches a lock held by another process.
	ErrLocked = errors.New("installation root is locked")
	// ErrUnavailable is returned where advisory file locks are not supported.
	ErrUnavailable = errors.New("file locking not available on this platform")
)

// Holder describes the process holding the lock.
type Holder struct {
	PID       int       `yaml:"pid"`
	Command   string    `yaml:"command"`
	StartedAt time.Time `yaml:"started_at"`
}

// LockedError is returned by Acquire when another process holds the lock.
type LockedError struct {
	Path string
	// Holder is nil when the lock file carries no readable metadata.
	Holder *Holder
}

// Error implements the error interface.
func (e *LockedError) Error() string {
	if e.Holder == nil {
		return fmt.Sprintf("%s (%s)", ErrLocked, e.Path)
	}
	return fmt.Sprintf("%s by pid %d running %q since %s", ErrLocked, e.Holder.PID, e.Holder.Command,
		e.Holder.StartedAt.Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrLocked) succeed.
func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}

// Path returns the lock file path for root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// ReadHolder reads the holder metadata from the lock file at root.
// It returns nil and no error when the file is missing or empty.
func ReadHolder(root string) (*Holder, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var h Holder
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}
	return &h, nil
}

// HolderAlive reports whether the process recorded in h still exists.
func HolderAlive(h *Holder) bool {
	if h == nil || h.PID <= 0 {
		return false
	}
	alive, err := process.PidExists(int32(h.PID))
	return err == nil && alive
}

func currentHolder(command string) *Holder {
	return &Holder{PID: os.Getpid(), Command: command, StartedAt: time.Now().UTC().Truncate(time.Second)}
}

func marshalHolder(h *Holder) ([]byte, error) {
	data, err := yaml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshaling lock metadata: %w", err)
	}
	return data, nil
}
