package store

import (
	"github.com/eternalApril/lunakv/internal/codec"
	"github.com/eternalApril/lunakv/internal/expiration"
	"github.com/eternalApril/lunakv/internal/storage"
)

// Store is the entry adapter commands go through: it applies the codec on the way
// in and out and evicts expired keys before any read
type Store struct {
	db  storage.Storage
	exp *expiration.Tracker
}

// New wraps a storage primitive and the tracker that owns its expiration records
func New(db storage.Storage, exp *expiration.Tracker) *Store {
	return &Store{
		db:  db,
		exp: exp,
	}
}

// Store encodes value and writes it under key. Any TTL on the key is left untouched
func (s *Store) Store(key string, value any) error {
	raw, err := codec.Encode(value)
	if err != nil {
		return err
	}
	return s.db.Set(key, raw)
}

// Retrieve returns the decoded value and whether the key is present
func (s *Store) Retrieve(key string) (any, bool, error) {
	raw, ok, err := s.RetrieveRaw(key)
	if err != nil || !ok {
		return nil, false, err
	}
	return codec.Decode(raw), true, nil
}

// RetrieveRaw returns the stored text without decoding it
func (s *Store) RetrieveRaw(key string) (string, bool, error) {
	if _, err := s.exp.CleanIfExpired(key); err != nil {
		return "", false, err
	}
	return s.db.Get(key)
}

// Remove deletes the entry only
func (s *Store) Remove(key string) error {
	return s.db.Remove(key)
}

// Exists reports whether key is present. A key set to null exists
func (s *Store) Exists(key string) (bool, error) {
	_, ok, err := s.RetrieveRaw(key)
	return ok, err
}

// Keys enumerates the live entry keys, skipping expiration records and
// evicting every candidate whose TTL has run out
func (s *Store) Keys() ([]string, error) {
	all, err := s.db.Keys()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(all))
	for _, k := range all {
		if expiration.IsRecordKey(k) {
			continue
		}

		evicted, err := s.exp.CleanIfExpired(k)
		if err != nil {
			return nil, err
		}
		if !evicted {
			keys = append(keys, k)
		}
	}

	return keys, nil
}
