package storage

import (
	"errors"
	"io"
)

// ErrQuotaExceeded is returned by Set when the primitive has no room left for the write
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is the byte oriented key-value primitive the command engine is built on.
// Implementations are safe for concurrent use
type Storage interface {
	// Get returns the stored text and true if the key is found. Otherwise, "", false
	Get(key string) (string, bool, error)

	// Set writes the text under key, replacing any previous value.
	// Returns ErrQuotaExceeded when the write does not fit
	Set(key, value string) error

	// Remove deletes the key. Removing a missing key is not an error
	Remove(key string) error

	// Keys enumerates every stored key in no particular order
	Keys() ([]string, error)

	// Len returns the number of stored keys
	Len() (int, error)
}

// Snapshotter is implemented by primitives that can dump and reload their full state
type Snapshotter interface {
	// Snapshot writes the entire state of the storage to the writer.
	// Implementation must ensure consistency (or shard-level consistency)
	Snapshot(w io.Writer) error

	// Restore reads the state from the reader and populates the storage
	Restore(r io.Reader) error
}

var (
	_ Storage     = (*MapStorage)(nil)
	_ Storage     = (*ShardedMapStorage)(nil)
	_ Storage     = (*SQLiteStorage)(nil)
	_ Snapshotter = (*MapStorage)(nil)
	_ Snapshotter = (*ShardedMapStorage)(nil)
)
