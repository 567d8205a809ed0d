package storage

import (
	"errors"
	"hash/fnv"
	"io"
	"math/bits"
)

// ShardedMapStorage is a thread-safe key-value storage,
// divided into segments (shards) to reduce contention for locking
type ShardedMapStorage struct {
	shards    []*MapStorage
	shardMask uint32
}

// NewShardedMapStorage creates a new instance of ShardedMapStorage.
// The requestedShards parameter must be a power of two for efficient allocation.
// The maximum allowed number of shards is 64. The quota is split evenly between shards
func NewShardedMapStorage(requestedShards uint, quota int64) (*ShardedMapStorage, error) {
	if bits.OnesCount(requestedShards) != 1 {
		return nil, errors.New("requested shards must be a power of 2")
	}

	if requestedShards > 64 {
		return nil, errors.New("requested shards must be less or equal than 64")
	}

	if quota < 0 {
		return nil, errors.New("quota must not be negative")
	}

	s := &ShardedMapStorage{
		shards:    make([]*MapStorage, requestedShards),
		shardMask: uint32(requestedShards - 1),
	}

	shardQuota := quota / int64(requestedShards)
	if quota > 0 && shardQuota == 0 {
		shardQuota = 1
	}

	var i uint
	for i = 0; i < requestedShards; i++ {
		s.shards[i] = NewMapStorage(shardQuota)
	}

	return s, nil
}

// getShardIndex returns index of shard by key
func (s *ShardedMapStorage) getShardIndex(key string) uint32 {
	hash := fnv.New32a()
	hash.Write([]byte(key)) //nolint:errcheck

	return hash.Sum32() & s.shardMask
}

// Get returns the value and true if the key is found. Otherwise, "", false.
func (s *ShardedMapStorage) Get(key string) (string, bool, error) {
	return s.shards[s.getShardIndex(key)].Get(key)
}

// Set writes the value into the shard owning the key
func (s *ShardedMapStorage) Set(key, value string) error {
	return s.shards[s.getShardIndex(key)].Set(key, value)
}

// Remove deletes the key from the shard owning it
func (s *ShardedMapStorage) Remove(key string) error {
	return s.shards[s.getShardIndex(key)].Remove(key)
}

// Keys collects the keys of every shard
func (s *ShardedMapStorage) Keys() ([]string, error) {
	var keys []string
	for _, shard := range s.shards {
		k, err := shard.Keys()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k...)
	}
	return keys, nil
}

// Len sums the key counts of every shard
func (s *ShardedMapStorage) Len() (int, error) {
	total := 0
	for _, shard := range s.shards {
		n, err := shard.Len()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Snapshot iterates over all shards sequentially to minimize locking time
func (s *ShardedMapStorage) Snapshot(w io.Writer) error {
	for _, shard := range s.shards {
		if err := shard.Snapshot(w); err != nil {
			return err
		}
	}
	return nil
}

// Restore reads the stream and routes every record to its shard
func (s *ShardedMapStorage) Restore(r io.Reader) error {
	return readSnapshot(r, func(key, value string) {
		s.shards[s.getShardIndex(key)].put(key, value)
	})
}
