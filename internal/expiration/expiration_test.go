package expiration

import (
	"testing"
	"time"

	"github.com/eternalApril/lunakv/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setup(t *testing.T) (*Tracker, *storage.MapStorage, *fakeClock) {
	t.Helper()
	db := storage.NewMapStorage(0)
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	return NewTracker(db, clock.Now, nil), db, clock
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, "\x1eexp:foo", KeyOf("foo"))
	assert.True(t, IsRecordKey(KeyOf("foo")))
	assert.False(t, IsRecordKey("foo"))
	assert.False(t, IsRecordKey("exp:foo"))
}

func TestTracker_SetAndTTL(t *testing.T) {
	tr, db, clock := setup(t)
	require.NoError(t, db.Set("foo", `"bar"`))

	_, ok, err := tr.TTL("foo")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tr.Set("foo", 100, tr.Now()))

	has, err := tr.Has("foo")
	require.NoError(t, err)
	assert.True(t, has)

	clock.Advance(40 * time.Millisecond)
	ttl, ok, err := tr.TTL("foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(60), ttl)

	raw, _, _ := db.Get(KeyOf("foo"))
	assert.JSONEq(t, `{"c":1700000000000,"d":100}`, raw)
}

func TestTracker_SetOverwrites(t *testing.T) {
	tr, db, clock := setup(t)
	require.NoError(t, db.Set("foo", `"bar"`))

	require.NoError(t, tr.Set("foo", 100, tr.Now()))
	clock.Advance(90 * time.Millisecond)
	require.NoError(t, tr.Set("foo", 100, tr.Now()))

	ttl, _, err := tr.TTL("foo")
	require.NoError(t, err)
	assert.Equal(t, int64(100), ttl)
}

func TestTracker_TTLCanBeNegative(t *testing.T) {
	tr, db, clock := setup(t)
	require.NoError(t, db.Set("foo", `"bar"`))
	require.NoError(t, tr.Set("foo", 10, tr.Now()))

	clock.Advance(25 * time.Millisecond)
	ttl, ok, err := tr.TTL("foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(-15), ttl)

	// Has must not evict
	has, err := tr.Has("foo")
	require.NoError(t, err)
	assert.True(t, has)
	_, present, _ := db.Get("foo")
	assert.True(t, present)
}

func TestTracker_Remove(t *testing.T) {
	tr, db, _ := setup(t)
	require.NoError(t, db.Set("foo", `"bar"`))
	require.NoError(t, tr.Set("foo", 10, tr.Now()))

	require.NoError(t, tr.Remove("foo"))

	has, err := tr.Has("foo")
	require.NoError(t, err)
	assert.False(t, has)
	_, present, _ := db.Get("foo")
	assert.True(t, present, "Remove must leave the entry in place")
}

func TestTracker_CleanIfExpired(t *testing.T) {
	tr, db, clock := setup(t)
	require.NoError(t, db.Set("foo", `"bar"`))
	require.NoError(t, tr.Set("foo", 10, tr.Now()))

	evicted, err := tr.CleanIfExpired("foo")
	require.NoError(t, err)
	assert.False(t, evicted)

	// exactly at the deadline the key is still live
	clock.Advance(10 * time.Millisecond)
	evicted, err = tr.CleanIfExpired("foo")
	require.NoError(t, err)
	assert.False(t, evicted)

	clock.Advance(time.Millisecond)
	evicted, err = tr.CleanIfExpired("foo")
	require.NoError(t, err)
	assert.True(t, evicted)

	n, _ := db.Len()
	assert.Equal(t, 0, n, "entry and record must be removed together")
}

func TestTracker_CleanWithoutRecord(t *testing.T) {
	tr, db, _ := setup(t)
	require.NoError(t, db.Set("foo", `"bar"`))

	evicted, err := tr.CleanIfExpired("foo")
	require.NoError(t, err)
	assert.False(t, evicted)
}

func TestTracker_CorruptRecord(t *testing.T) {
	tr, db, _ := setup(t)
	require.NoError(t, db.Set(KeyOf("foo"), "not json"))

	_, _, err := tr.TTL("foo")
	assert.Error(t, err)
}
