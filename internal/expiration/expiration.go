// Package expiration owns the TTL metadata stored next to every expiring key.
//
// A key with a live TTL has a companion row under KeyOf(key) holding a Record.
// Remaining time is never stored, it is derived as CreatedAt + DelayMs - now.
// Nothing runs in the background: CleanIfExpired is called by readers before
// they look at a key and removes the key together with its record once the
// remaining time has gone negative.
package expiration

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eternalApril/lunakv/internal/storage"
	"go.uber.org/zap"
)

const (
	// Prefix starts every expiration record key. Storage keys beginning with it are reserved
	Prefix = "\x1eexp"
	// Delimiter separates the prefix from the storage key
	Delimiter = ":"
)

// Record is the stored expiration metadata. Field names are kept short to save space
type Record struct {
	CreatedAt int64 `json:"c"` // unix milliseconds when the TTL was installed
	DelayMs   int64 `json:"d"`
}

// Deadline returns the unix millisecond at which the key stops being live
func (r Record) Deadline() int64 {
	return r.CreatedAt + r.DelayMs
}

// KeyOf derives the record key for a storage key
func KeyOf(storageKey string) string {
	return Prefix + Delimiter + storageKey
}

// IsRecordKey reports whether a raw storage key holds expiration metadata
func IsRecordKey(key string) bool {
	return strings.HasPrefix(key, Prefix+Delimiter)
}

// IsReserved reports whether a caller supplied key falls in the reserved namespace
func IsReserved(key string) bool {
	return strings.HasPrefix(key, Prefix)
}

// Tracker reads and writes expiration records on a storage primitive
type Tracker struct {
	db      storage.Storage
	now     func() time.Time
	logger  *zap.Logger
	onEvict func(key string)
}

// NewTracker creates a Tracker. now supplies the wall clock
func NewTracker(db storage.Storage, now func() time.Time, logger *zap.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracker{
		db:     db,
		now:    now,
		logger: logger,
	}
}

// OnEvict registers fn to be called with every key CleanIfExpired removes
func (t *Tracker) OnEvict(fn func(key string)) {
	t.onEvict = fn
}

// Now returns the tracker's current time in unix milliseconds
func (t *Tracker) Now() int64 {
	return t.now().UnixMilli()
}

// Set writes a fresh record for key, overwriting any previous one.
// Callers check that the key exists before installing a TTL
func (t *Tracker) Set(key string, delayMs int64, now int64) error {
	raw, err := json.Marshal(Record{CreatedAt: now, DelayMs: delayMs})
	if err != nil {
		return err
	}
	return t.db.Set(KeyOf(key), string(raw))
}

// Remove deletes the record only, the entry itself is left alone
func (t *Tracker) Remove(key string) error {
	return t.db.Remove(KeyOf(key))
}

// Has reports whether a record exists for key. It never evicts
func (t *Tracker) Has(key string) (bool, error) {
	_, ok, err := t.db.Get(KeyOf(key))
	return ok, err
}

// Get returns the parsed record for key
func (t *Tracker) Get(key string) (Record, bool, error) {
	raw, ok, err := t.db.Get(KeyOf(key))
	if err != nil || !ok {
		return Record{}, false, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false, fmt.Errorf("corrupt expiration record for %q: %w", key, err)
	}
	return rec, true, nil
}

// TTL returns the remaining milliseconds for key and false if it has no record.
// The result is negative when the key should already be gone
func (t *Tracker) TTL(key string) (int64, bool, error) {
	rec, ok, err := t.Get(key)
	if err != nil || !ok {
		return 0, false, err
	}
	return rec.Deadline() - t.Now(), true, nil
}

// CleanIfExpired deletes key and its record when the TTL has run out.
// Returns true if the key was evicted
func (t *Tracker) CleanIfExpired(key string) (bool, error) {
	ttl, ok, err := t.TTL(key)
	if err != nil || !ok || ttl >= 0 {
		return false, err
	}

	if err := t.db.Remove(key); err != nil {
		return false, err
	}
	if err := t.Remove(key); err != nil {
		return false, err
	}

	if t.logger.Core().Enabled(zap.DebugLevel) {
		t.logger.Debug("key expired", zap.String("key", key), zap.Int64("overdue_ms", -ttl))
	}
	if t.onEvict != nil {
		t.onEvict(key)
	}

	return true, nil
}
