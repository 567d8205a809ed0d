package server

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eternalApril/lunakv/internal/config"
	"github.com/eternalApril/lunakv/internal/expiration"
	"github.com/eternalApril/lunakv/internal/kv"
	"github.com/eternalApril/lunakv/internal/persistence"
	"github.com/eternalApril/lunakv/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func persistentConfig(dir string, aof, rdb bool) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendMemory},
		Persistence: config.PersistenceConfig{
			AOF: config.AOFConfig{
				Enabled:  aof,
				Filename: filepath.Join(dir, "appendonly.aof"),
				Fsync:    "always",
			},
			RDB: config.RDBConfig{
				Enabled:  rdb,
				Filename: filepath.Join(dir, "dump.rdb"),
			},
		},
	}
}

func TestAOFReplayKeepsAbsoluteDeadlines(t *testing.T) {
	dir := t.TempDir()
	cfg := persistentConfig(dir, true, false)
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}

	first, err := NewEngine(storage.NewMapStorage(0), cfg, zaptest.NewLogger(t), kv.WithClock(clock.Now))
	require.NoError(t, err)

	for _, c := range [][]string{
		{"SET", "a", "1"},
		{"SET", "b", "2"},
		{"EXPIRE", "b", "10"},
		{"PEXPIRE", "a", "100"},
		{"SETEX", "c", "5", "v"},
		{"SET", "d", "v", "PX", "500"},
		{"RPUSH", "l", "x", "y"},
		{"INCR", "n"},
		{"SET", "bad", "word"},
		{"MINCR", "n", "bad", "never"},
	} {
		first.Execute(c[0], makeCommand(c[0], c[1:]...))
	}
	first.Shutdown()

	clock.t = clock.t.Add(time.Second)

	second, err := NewEngine(storage.NewMapStorage(0), cfg, zaptest.NewLogger(t), kv.WithClock(clock.Now))
	require.NoError(t, err)
	defer second.Shutdown()

	db := second.KV()

	// PEXPIREAT for a and d lies in the past by now
	for _, key := range []string{"a", "d"} {
		n, err := db.Exists(key)
		require.NoError(t, err)
		assert.Zero(t, n, key)
	}

	pttl, err := db.PTTL("b")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), pttl, "replay does not restart the TTL")

	pttl, err = db.PTTL("c")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), pttl)

	l, err := db.LRange("l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, l)

	// the failed batch still applied its first increment
	n, err := db.Get("n")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	never, err := db.Exists("never")
	require.NoError(t, err)
	assert.Zero(t, never)
}

func TestAOFLogsLazyEvictions(t *testing.T) {
	dir := t.TempDir()
	cfg := persistentConfig(dir, true, false)
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}

	first, err := NewEngine(storage.NewMapStorage(0), cfg, zaptest.NewLogger(t), kv.WithClock(clock.Now))
	require.NoError(t, err)

	first.Execute("SET", makeCommand("SET", "k", "word", "PX", "100"))
	clock.t = clock.t.Add(time.Second)

	// k is gone, INCR starts from zero
	res := first.Execute("INCR", makeCommand("INCR", "k"))
	require.Equal(t, int64(1), res.Integer)
	first.Shutdown()

	// replaying right away must not see "word" under k
	clock.t = time.UnixMilli(1_700_000_000_000)

	second, err := NewEngine(storage.NewMapStorage(0), cfg, zaptest.NewLogger(t), kv.WithClock(clock.Now))
	require.NoError(t, err)
	defer second.Shutdown()

	v, err := second.KV().Get("k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestRDBSaveOnShutdownAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := persistentConfig(dir, false, true)

	first, err := NewEngine(storage.NewMapStorage(0), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	first.Execute("SET", makeCommand("SET", "k", "v"))
	first.Execute("EXPIRE", makeCommand("EXPIRE", "k", "100"))
	res := first.Execute("SAVE", nil)
	assert.Equal(t, "OK", string(res.String))

	first.Execute("SET", makeCommand("SET", "later", "v"))
	first.Shutdown()

	second, err := NewEngine(storage.NewMapStorage(0), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer second.Shutdown()

	v, err := second.KV().Get("later")
	require.NoError(t, err)
	assert.Equal(t, "v", v, "shutdown writes a final snapshot")

	n, err := second.KV().Expires("k")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "expiration records travel with the snapshot")
}

func TestRDBDisabledForSQLite(t *testing.T) {
	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	cfg := persistentConfig(t.TempDir(), false, true)
	cfg.Storage.Backend = config.BackendSQLite

	e, err := NewEngine(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Shutdown()

	res := e.Execute("SAVE", nil)
	assert.Contains(t, string(res.String), "RDB disabled")

	res = e.Execute("SET", makeCommand("SET", "k", "v"))
	assert.Equal(t, "OK", string(res.String))
}

func TestRDBSnapshotNeverSplitsRename(t *testing.T) {
	dir := t.TempDir()
	cfg := persistentConfig(dir, false, true)
	log := zaptest.NewLogger(t)

	db, err := storage.NewShardedMapStorage(8, 0)
	require.NoError(t, err)

	e, err := NewEngine(db, cfg, log)
	require.NoError(t, err)
	defer e.Shutdown()

	e.Execute("SET", makeCommand("SET", "a", "v", "EX", "100"))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		from, to := "a", "b"
		for {
			select {
			case <-stop:
				return
			default:
			}
			e.Execute("RENAME", makeCommand("RENAME", from, to))
			from, to = to, from
		}
	}()

	rdb := persistence.NewRDB(cfg.Persistence.RDB.Filename, log)
	for range 50 {
		if err := e.save(); err != nil {
			require.True(t, errors.Is(err, errSaveInProgress), "save failed: %v", err)
			continue
		}

		restored := storage.NewMapStorage(0)
		require.NoError(t, rdb.Load(restored))

		keys, err := restored.Keys()
		require.NoError(t, err)
		require.Len(t, keys, 2, "one entry and one record, got %q", keys)

		var entry string
		for _, key := range keys {
			if !expiration.IsRecordKey(key) {
				entry = key
			}
		}
		require.Contains(t, []string{"a", "b"}, entry)

		_, hasRecord, err := restored.Get(expiration.KeyOf(entry))
		require.NoError(t, err)
		require.True(t, hasRecord, "the record follows the entry %q", entry)
	}

	close(stop)
	wg.Wait()
}
