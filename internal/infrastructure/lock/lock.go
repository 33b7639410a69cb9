package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock is a non-blocking advisory lock on a fixed filesystem path.
// It keeps at most one backup run alive at a time; a run that finds the
// lock held walks away instead of waiting.
type FileLock struct {
	flock *flock.Flock
}

func New(path string) (*FileLock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &FileLock{flock: flock.New(path)}, nil
}

// Acquire attempts to take the lock without blocking. It returns false when
// the lock is already held by another run.
func (l *FileLock) Acquire() (bool, error) {
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.flock.Path(), err)
	}
	return ok, nil
}

// Release frees the lock. Safe to call when the lock is not held.
func (l *FileLock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.flock.Path(), err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.flock.Path()
}
