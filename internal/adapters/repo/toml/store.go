// Package toml persists bot state as TOML documents under a single state
// directory. Writes are atomic (temp file plus rename) and every path is
// guarded by a process-wide lock registry so concurrent repositories for
// the same file never interleave.
package toml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	stateDirMode  = 0o700
	stateFileMode = 0o600

	sessionFileName   = "session.toml"
	contactedFileName = "contacted.toml"
	runLogFileName    = "runs.toml"

	tempFilePattern = ".state-*.toml.tmp"
)

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// store binds one state file to its lock.
type store struct {
	path string
	mu   *sync.RWMutex
}

func newStore(dir, fileName string) (store, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return store{}, fmt.Errorf("resolve state directory: %w", err)
	}

	path := filepath.Clean(filepath.Join(absDir, fileName))
	return store{path: path, mu: lockForPath(path)}, nil
}

// read decodes the file into dst. A missing file is not an error; the
// second return value reports whether the file existed.
func (s store) read(dst any) (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", filepath.Base(s.path), err)
	}

	if err := toml.Unmarshal(data, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", filepath.Base(s.path), err)
	}
	return true, nil
}

func (s store) write(src any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(s.path), err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(s.path), err)
	}

	cleanup = false

	if err := os.Chmod(s.path, stateFileMode); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(s.path), err)
	}

	return nil
}
