//go:build linux || darwin

package lock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock is a held exclusive lock on an installation root.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes the lock for root without blocking. When another process holds
// it, a *LockedError describing that process is returned.
func Acquire(root, command string) (*Lock, error) {
	path := Path(root)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			holder, _ := ReadHolder(root)
			return nil, &LockedError{Path: path, Holder: holder}
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	l := &Lock{file: f, path: path}
	if err := l.writeHolder(currentHolder(command)); err != nil {
		l.Release()
		return nil, err
	}
	return l, nil
}

// Held reports whether the lock for root is currently held by another
// process, without keeping it.
func Held(root string) (bool, error) {
	f, err := os.OpenFile(Path(root), os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return true, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false, nil
}

func (l *Lock) writeHolder(h *Holder) error {
	data, err := marshalHolder(h)
	if err != nil {
		return err
	}
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := l.file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}

// Release clears the metadata, unlocks and closes the file. It is safe to call
// multiple times. The file itself is left in place so that a concurrent
// Acquire never locks an unlinked inode.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Truncate(0)
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
