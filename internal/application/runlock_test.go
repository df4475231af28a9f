package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLockIsExclusive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := NewRunLock(dir)
	require.NoError(t, first.Acquire())

	second := NewRunLock(dir)
	err := second.Acquire()
	require.ErrorIs(t, err, ErrRunLocked)

	require.NoError(t, first.Release())
	assert.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestRunLockReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	lock := NewRunLock(t.TempDir())
	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}
