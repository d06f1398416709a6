//go:build !linux && !darwin

package lock

// Lock is the stub used where flock is unavailable. Release is a no-op.
type Lock struct{}

// Acquire always returns ErrUnavailable; callers proceed unlocked.
func Acquire(root, command string) (*Lock, error) {
	return nil, ErrUnavailable
}

// Held always reports the lock as free.
func Held(root string) (bool, error) {
	return false, nil
}

// Release is a no-op.
func (l *Lock) Release() {}
