//go:build linux || darwin

package lock

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_WritesHolder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	l, err := Acquire(root, "install tool")
	require.NoError(t, err)
	defer l.Release()

	h, err := ReadHolder(root)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, os.Getpid(), h.PID)
	assert.Equal(t, "install tool", h.Command)
	assert.False(t, h.StartedAt.IsZero())
	assert.True(t, HolderAlive(h))
}

func TestAcquire_HeldLockFailsFast(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	first, err := Acquire(root, "update")
	require.NoError(t, err)
	defer first.Release()

	second, err := Acquire(root, "install tool")
	require.Error(t, err)
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrLocked)

	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	require.NotNil(t, locked.Holder)
	assert.Equal(t, "update", locked.Holder.Command)
	assert.Contains(t, err.Error(), `"update"`)

	held, err := Held(root)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestRelease_AllowsReacquire(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	l, err := Acquire(root, "remove tool")
	require.NoError(t, err)
	l.Release()
	l.Release() // idempotent

	assert.FileExists(t, Path(root))
	h, err := ReadHolder(root)
	require.NoError(t, err)
	assert.Nil(t, h, "metadata is cleared on release")

	held, err := Held(root)
	require.NoError(t, err)
	assert.False(t, held)

	again, err := Acquire(root, "remove tool")
	require.NoError(t, err)
	again.Release()
}

func TestHeld_NoLockFile(t *testing.T) {
	t.Parallel()

	held, err := Held(t.TempDir())
	require.NoError(t, err)
	assert.False(t, held)
}

func TestReadHolder(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content string
		wantNil bool
		wantErr bool
	}{
		"missing file": {wantNil: true},
		"empty file":   {content: "\n", wantNil: true},
		"valid":        {content: "pid: 42\ncommand: update\nstarted_at: 2026-01-02T03:04:05Z\n"},
		"corrupt":      {content: "pid: [oops", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			if tt.content != "" {
				require.NoError(t, os.WriteFile(Path(root), []byte(tt.content), 0o644))
			}
			h, err := ReadHolder(root)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, h)
				return
			}
			assert.Equal(t, 42, h.PID)
			assert.Equal(t, "update", h.Command)
		})
	}
}

func TestHolderAlive(t *testing.T) {
	t.Parallel()

	assert.False(t, HolderAlive(nil))
	assert.False(t, HolderAlive(&Holder{PID: 0}))
	assert.True(t, HolderAlive(&Holder{PID: os.Getpid()}))
}
