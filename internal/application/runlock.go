package application

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrRunLocked means another process already holds the run lock.
var ErrRunLocked = errors.New("another run is already in progress")

const lockFileName = "run.lock"

// RunLock is an exclusive lock file that keeps two bot processes from
// dispatching against the same state directory at once. O_EXCL makes the
// create atomic across processes.
type RunLock struct {
	path string
}

func NewRunLock(dir string) *RunLock {
	return &RunLock{path: filepath.Join(dir, lockFileName)}
}

func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w (lock file %s)", ErrRunLocked, l.path)
		}
		return fmt.Errorf("acquire run lock: %w", err)
	}

	_, _ = file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	return file.Close()
}

func (l *RunLock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
