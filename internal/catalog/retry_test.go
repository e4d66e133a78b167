package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestRetryOnBusyRetriesOnlyBusyErrors(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success after 3 calls, got err=%v calls=%d", err, calls)
	}

	calls = 0
	permanent := errors.New("constraint failed")
	if err := retryOnBusy(context.Background(), func() error {
		calls++
		return permanent
	}); !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("expected single attempt for non-busy error, got err=%v calls=%d", err, calls)
	}

	calls = 0
	if err := retryOnBusy(context.Background(), func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	}); err == nil || calls != busyRetryAttempts {
		t.Fatalf("expected %d attempts, got err=%v calls=%d", busyRetryAttempts, err, calls)
	}
}
