package storage

import (
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryWithBackoff wraps a SQLite operation with exponential backoff.
// Only lock contention is retried, everything else stops immediately
func retryWithBackoff(operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	b.RandomizationFactor = 0.1

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if isBusyError(err) {
			return err
		}

		return backoff.Permanent(err)
	}, b)
}

// isBusyError matches the modernc.org/sqlite messages for lock contention
func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// isFullError matches the modernc.org/sqlite messages for an exhausted database or disk
func isFullError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "SQLITE_FULL")
}
