package kv

import (
	"errors"
	"testing"
	"time"

	"github.com/eternalApril/lunakv/internal/expiration"
	"github.com/eternalApril/lunakv/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock, *storage.MapStorage) {
	t.Helper()

	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	db := storage.NewMapStorage(0)
	return New(db, WithClock(clock.Now)), clock, db
}

func TestErrorIs(t *testing.T) {
	err := newError(KindNoSuchKey, "rename", "foo")

	assert.ErrorIs(t, err, ErrNoSuchKey)
	assert.NotErrorIs(t, err, ErrValueNotArray)
	assert.Equal(t, `rename "foo": no such key`, err.Error())
}

func TestSetGetRoundTrip(t *testing.T) {
	e, _, _ := newTestEngine(t)

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"string", "bar", "bar"},
		{"numeric string stays string", "42", "42"},
		{"integer", 42, int64(42)},
		{"float", 1.5, 1.5},
		{"bool", true, true},
		{"null", nil, nil},
		{"list", []any{1, "two"}, []any{int64(1), "two"}},
		{"object", map[string]any{"a": []any{1}}, map[string]any{"a": []any{int64(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, e.Set("k", tt.value))

			got, err := e.Get("k")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiteralFallback(t *testing.T) {
	e, _, db := newTestEngine(t)

	// text written by something other than the engine
	require.NoError(t, db.Set("raw", "not json"))

	got, err := e.Get("raw")
	require.NoError(t, err)
	assert.Equal(t, "not json", got)

	key, ok, err := e.GetKey("not json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "raw", key)
}

func TestNullValueExists(t *testing.T) {
	e, _, _ := newTestEngine(t)

	require.NoError(t, e.Set("k", nil))

	n, err := e.Exists("k")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	typ, err := e.Type("k")
	require.NoError(t, err)
	assert.Equal(t, "null", typ)
}

func TestKeyOf(t *testing.T) {
	e, _, _ := newTestEngine(t)

	key, err := KeyOf(map[string]any{"name": "Yogi Bear"})
	require.NoError(t, err)
	require.NoError(t, e.Set(key, "picnic"))

	got, err := e.Get(`{"name":"Yogi Bear"}`)
	require.NoError(t, err)
	assert.Equal(t, "picnic", got)

	_, err = KeyOf(make(chan int))
	assert.Error(t, err)
}

func TestRecordKeysAreHidden(t *testing.T) {
	e, _, db := newTestEngine(t)

	require.NoError(t, e.SetEx("a", 10, "x"))
	require.NoError(t, e.Set("b", "y"))

	raw, err := db.Keys()
	require.NoError(t, err)
	assert.Len(t, raw, 3)
	assert.Contains(t, raw, expiration.KeyOf("a"))

	keys, err := e.Keys(".*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	size, err := e.DBSize()
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestQuotaExceededSurfaces(t *testing.T) {
	db := storage.NewMapStorage(8)
	e := New(db)

	err := e.Set("key", "a value that is far too long")
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
}

func newTestDB() *storage.MapStorage {
	return storage.NewMapStorage(0)
}
