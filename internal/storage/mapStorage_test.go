package storage

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStorage_Concurrency(t *testing.T) {
	s := NewMapStorage(0)
	const workers = 50
	const opsPerWorker = 2000

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for j := 0; j < opsPerWorker; j++ {
				key := fmt.Sprintf("key-%d", r.Intn(50))
				val := fmt.Sprintf("val-%d", j)

				switch r.Intn(4) {
				case 0:
					s.Set(key, val) //nolint:errcheck
				case 1:
					s.Get(key) //nolint:errcheck
				case 2:
					s.Remove(key) //nolint:errcheck
				case 3:
					s.Keys() //nolint:errcheck
				}
			}
		}(i)
	}

	wg.Wait()

	keys, err := s.Keys()
	require.NoError(t, err)

	var expected int64
	for _, k := range keys {
		v, ok, err := s.Get(k)
		require.NoError(t, err)
		require.True(t, ok)
		expected += int64(len(k) + len(v))
	}
	assert.Equal(t, expected, s.Used(), "byte accounting drifted under concurrency")
}

func TestMapStorage_Quota(t *testing.T) {
	s := NewMapStorage(10)

	require.NoError(t, s.Set("k", "12345")) // 6 bytes
	require.ErrorIs(t, s.Set("x", "123456"), ErrQuotaExceeded)

	// overwriting frees the old value first
	require.NoError(t, s.Set("k", "123456789"))
	assert.Equal(t, int64(10), s.Used())

	require.NoError(t, s.Remove("k"))
	assert.Equal(t, int64(0), s.Used())
	require.NoError(t, s.Set("x", "123456"))
}

func TestMapStorage_KeysAndLen(t *testing.T) {
	s := NewMapStorage(0)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Remove("missing"))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMapStorage_SnapshotRestore(t *testing.T) {
	src := NewMapStorage(0)
	require.NoError(t, src.Set("foo", `"bar"`))
	require.NoError(t, src.Set("\x1eexp:foo", `{"c":1,"d":2}`))
	require.NoError(t, src.Set("", "empty key"))

	var buf bytes.Buffer
	require.NoError(t, src.Snapshot(&buf))

	dst := NewMapStorage(0)
	require.NoError(t, dst.Restore(&buf))

	for _, k := range []string{"foo", "\x1eexp:foo", ""} {
		want, _, _ := src.Get(k)
		got, ok, err := dst.Get(k)
		require.NoError(t, err)
		require.True(t, ok, "key %q missing after restore", k)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, src.Used(), dst.Used())
}

func TestMapStorage_RestoreTruncated(t *testing.T) {
	src := NewMapStorage(0)
	require.NoError(t, src.Set("foo", "bar"))

	var buf bytes.Buffer
	require.NoError(t, src.Snapshot(&buf))

	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-1])
	assert.Error(t, NewMapStorage(0).Restore(truncated))
}

func FuzzMapStorage(f *testing.F) {
	s := NewMapStorage(0)

	f.Add("key1", "val1")
	f.Add("special", "!@#$%^&*()")

	f.Fuzz(func(t *testing.T, key string, val string) {
		if err := s.Set(key, val); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		v, ok, _ := s.Get(key)
		if !ok || v != val {
			t.Errorf("Get failed after Set: key=%q, val=%q", key, val)
		}
	})
}
