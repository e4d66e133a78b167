package dirlock_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recordlinker/internal/dirlock"
)

func TestAcquireCreatesDirectoryAndExcludesSecondHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	lock, err := dirlock.Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if _, err := os.Stat(lock.Path()); err != nil {
		t.Fatalf("expected lock file to exist: %v", err)
	}

	if _, err := dirlock.Acquire(dir); !errors.Is(err, dirlock.ErrLocked) {
		t.Fatalf("expected ErrLocked for second acquire, got %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release returned error: %v", err)
	}

	again, err := dirlock.Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after release returned error: %v", err)
	}
	defer again.Release()
}

func TestAcquireRejectsBlankDirectory(t *testing.T) {
	if _, err := dirlock.Acquire("  "); err == nil {
		t.Fatal("expected error for blank directory")
	}
}
