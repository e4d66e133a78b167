// Package dirlock guards an output directory against concurrent runs.
package dirlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// FileName is the lock file created inside a guarded directory.
const FileName = ".recordlinker.lock"

// ErrLocked is returned when another process already holds the lock.
var ErrLocked = errors.New("directory is locked by another recordlinker process")

// Lock is an acquired directory lock.
type Lock struct {
	path  string
	flock *flock.Flock
}

// Acquire creates dir if needed and takes a non-blocking exclusive lock on
// its lock file.
func Acquire(dir string) (*Lock, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("lock directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{path: path, flock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks the directory. Releasing a nil or released lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	err := l.flock.Unlock()
	l.flock = nil
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
