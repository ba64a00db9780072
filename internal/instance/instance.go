// Package instance guards the state directory against concurrent dlsort
// processes.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock
var ErrLocked = errors.New("another dlsort instance is running")

// Lock is an advisory, exclusive file lock
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock at path without blocking. It returns ErrLocked if
// another process already holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLocked
	}

	return &Lock{fl: fl}, nil
}

// Path returns the lock file location
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks. The lock file itself is left in place.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
