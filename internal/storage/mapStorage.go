package storage

import (
	"encoding/binary"
	"io"
	"sync"
)

// MapStorage is a thread-safe in-memory key-value primitive with an optional byte quota
type MapStorage struct {
	data  map[string]string // key - value
	used  int64             // bytes taken by keys and values
	quota int64             // 0 means unlimited
	mu    sync.RWMutex
}

// NewMapStorage creates a new instance of MapStorage.
// quota limits the sum of key and value lengths in bytes, 0 disables the limit
func NewMapStorage(quota int64) *MapStorage {
	return &MapStorage{
		data:  make(map[string]string),
		quota: quota,
		mu:    sync.RWMutex{},
	}
}

// Get returns the value and true if the key is found. Otherwise, "", false
func (m *MapStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	val, ok := m.data[key]
	m.mu.RUnlock()

	return val, ok, nil
}

// Set writes the value, failing with ErrQuotaExceeded if it does not fit in the quota
func (m *MapStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used + int64(len(value))
	if old, ok := m.data[key]; ok {
		used -= int64(len(old))
	} else {
		used += int64(len(key))
	}

	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}

	m.data[key] = value
	m.used = used

	return nil
}

// Remove deletes the key
func (m *MapStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.data[key]; ok {
		m.used -= int64(len(key) + len(old))
		delete(m.data, key)
	}

	return nil
}

// Keys returns every stored key
func (m *MapStorage) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}

	return keys, nil
}

// Len returns the number of stored keys
func (m *MapStorage) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data), nil
}

// Used returns the number of bytes counted against the quota
func (m *MapStorage) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.used
}

// Snapshot serializes the data in Writer.
func (m *MapStorage) Snapshot(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	header := make([]byte, 8)

	for key, value := range m.data {
		binary.LittleEndian.PutUint32(header[0:4], uint32(len(key)))
		binary.LittleEndian.PutUint32(header[4:8], uint32(len(value)))

		// header
		if _, err := w.Write(header); err != nil {
			return err
		}

		// body
		if _, err := io.WriteString(w, key); err != nil {
			return err
		}
		if _, err := io.WriteString(w, value); err != nil {
			return err
		}
	}

	return nil
}

// Restore reads the stream and fills the map. The quota is not enforced on restore
func (m *MapStorage) Restore(r io.Reader) error {
	return readSnapshot(r, m.put)
}

// put stores a restored record bypassing the quota check
func (m *MapStorage) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.data[key]; ok {
		m.used -= int64(len(key) + len(old))
	}
	m.data[key] = value
	m.used += int64(len(key) + len(value))
}

// readSnapshot decodes records written by Snapshot and hands each one to put
func readSnapshot(r io.Reader, put func(key, value string)) error {
	header := make([]byte, 8)

	for {
		_, err := io.ReadFull(r, header)
		if err == io.EOF {
			return nil // end of stream
		}
		if err != nil {
			return err
		}

		keyLen := binary.LittleEndian.Uint32(header[0:4])
		valueLen := binary.LittleEndian.Uint32(header[4:8])

		// read key
		keyBuf := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBuf); err != nil {
			return err
		}

		// read value
		valBuf := make([]byte, valueLen)
		if _, err := io.ReadFull(r, valBuf); err != nil {
			return err
		}

		put(string(keyBuf), string(valBuf))
	}
}
