// Package kv implements the command engine: key lifecycle, string/numeric and list
// commands over a storage primitive, with lazily reconciled expiration.
//
// Every command runs to completion under the engine's mutex, so multi-step commands
// such as RENAME or MSETNX never interleave with another command on the same engine.
// Separate engines over separate primitives are fully independent.
package kv

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/eternalApril/lunakv/internal/codec"
	"github.com/eternalApril/lunakv/internal/expiration"
	"github.com/eternalApril/lunakv/internal/storage"
	"github.com/eternalApril/lunakv/internal/store"
	"go.uber.org/zap"
)

// Engine executes commands against one storage primitive
type Engine struct {
	mu     sync.Mutex
	db     storage.Storage     // raw primitive, used for enumeration and raw copies
	exp    *expiration.Tracker // expiration records
	store  *store.Store        // codec + lazy eviction
	now    func() time.Time
	randN  func(n int) int // uniform in [0, n)
	logger *zap.Logger
	evict  func(key string)
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger used for eviction and diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRand replaces the uniform source used by RANDOMKEY
func WithRand(randN func(n int) int) Option {
	return func(e *Engine) {
		e.randN = randN
	}
}

// WithEvictHook calls fn, under the engine's lock, for every key removed because its
// TTL ran out. Hosts use it to propagate expirations, e.g. into an append-only log
func WithEvictHook(fn func(key string)) Option {
	return func(e *Engine) {
		e.evict = fn
	}
}

// New creates an engine over db
func New(db storage.Storage, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		now:    time.Now,
		randN:  rand.IntN,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.exp = expiration.NewTracker(db, e.now, e.logger)
	if e.evict != nil {
		e.exp.OnEvict(e.evict)
	}
	e.store = store.New(db, e.exp)

	return e
}

// KeyOf canonicalises an arbitrary key the way the engine stores it. Keys that
// have no JSON form return an error
func KeyOf(key any) (string, error) {
	return codec.KeyString(key)
}

// Exclusive runs fn while holding the engine's lock, so fn observes the storage
// between commands and never in the middle of one. fn must not call the engine
func (e *Engine) Exclusive(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return fn()
}

// checkKeys rejects keys in the namespace reserved for expiration records
func checkKeys(command string, keys ...string) error {
	for _, key := range keys {
		if expiration.IsReserved(key) {
			return newError(KindInvalidKey, command, key)
		}
	}
	return nil
}
