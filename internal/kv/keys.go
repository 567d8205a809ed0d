package kv

import (
	"math"
	"regexp"
	"slices"

	"github.com/eternalApril/lunakv/internal/codec"
)

// Del removes every given key together with its TTL and returns how many existed
func (e *Engine) Del(keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, newError(KindWrongArgumentCount, "del", "")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("del", keys...); err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		ok, err := e.del(key)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}

	return deleted, nil
}

func (e *Engine) del(key string) (bool, error) {
	ok, err := e.store.Exists(key)
	if err != nil || !ok {
		return false, err
	}

	if err := e.exp.Remove(key); err != nil {
		return false, err
	}
	return true, e.store.Remove(key)
}

// Exists returns 1 if key is present, 0 otherwise
func (e *Engine) Exists(key string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("exists", key); err != nil {
		return 0, err
	}

	ok, err := e.store.Exists(key)
	return boolToInt(ok), err
}

// Rename moves the value of key to newKey, overwriting it. The source TTL moves with
// the value, the destination's own TTL is dropped
func (e *Engine) Rename(key, newKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("rename", key, newKey); err != nil {
		return err
	}

	if err := e.checkRename("rename", key, newKey); err != nil {
		return err
	}

	if err := e.exp.Remove(newKey); err != nil {
		return err
	}

	raw, _, err := e.store.RetrieveRaw(key)
	if err != nil {
		return err
	}
	if err := e.db.Set(newKey, raw); err != nil {
		return err
	}

	rec, hasTTL, err := e.exp.Get(key)
	if err != nil {
		return err
	}
	if hasTTL {
		now := e.exp.Now()
		// the source is live, but the deadline may fall in this very millisecond
		ttl := max(rec.Deadline()-now, 1)
		if err := e.exp.Set(newKey, ttl, now); err != nil {
			return err
		}
		if err := e.exp.Remove(key); err != nil {
			return err
		}
	}

	return e.store.Remove(key)
}

// RenameNX renames key only when newKey does not exist. The TTL of key is discarded
func (e *Engine) RenameNX(key, newKey string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("renamenx", key, newKey); err != nil {
		return 0, err
	}

	if err := e.checkRename("renamenx", key, newKey); err != nil {
		return 0, err
	}

	taken, err := e.store.Exists(newKey)
	if err != nil || taken {
		return 0, err
	}

	raw, _, err := e.store.RetrieveRaw(key)
	if err != nil {
		return 0, err
	}
	if err := e.db.Set(newKey, raw); err != nil {
		return 0, err
	}
	if err := e.exp.Remove(newKey); err != nil {
		return 0, err
	}
	if err := e.exp.Remove(key); err != nil {
		return 0, err
	}

	return 1, e.store.Remove(key)
}

func (e *Engine) checkRename(command, key, newKey string) error {
	if key == newKey {
		return newError(KindSourceEqualsDestination, command, key)
	}

	ok, err := e.store.Exists(key)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindNoSuchKey, command, key)
	}
	return nil
}

// GetKey returns the first key, in key order, whose value equals value
func (e *Engine) GetKey(value any) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	matches, err := e.keysByValue(value, true)
	if err != nil || len(matches) == 0 {
		return "", false, err
	}
	return matches[0], true, nil
}

// GetKeyAll returns every key whose value equals value, or nil when none does
func (e *Engine) GetKeyAll(value any) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.keysByValue(value, false)
}

func (e *Engine) keysByValue(value any, first bool) ([]string, error) {
	want, err := codec.Encode(value)
	if err != nil {
		return nil, err
	}

	keys, err := e.liveKeys()
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, key := range keys {
		raw, ok, err := e.db.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok || !sameEncoding(raw, want) {
			continue
		}

		matches = append(matches, key)
		if first {
			break
		}
	}

	return matches, nil
}

// sameEncoding compares stored text with an encoded value. Text written outside
// the engine may not be JSON, so it is normalised first
func sameEncoding(raw, want string) bool {
	if raw == want {
		return true
	}

	normalized, err := codec.Encode(codec.Decode(raw))
	return err == nil && normalized == want
}

// RandomKey returns a uniformly chosen live key
func (e *Engine) RandomKey() (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, err := e.liveKeys()
	if err != nil || len(keys) == 0 {
		return "", false, err
	}
	return keys[e.randN(len(keys))], true, nil
}

// Keys returns the sorted live keys matching the regular expression pattern.
// No match gives an empty, non-nil slice
func (e *Engine) Keys(pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, newError(KindInvalidPattern, "keys", pattern)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	keys, err := e.liveKeys()
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(keys))
	for _, key := range keys {
		if re.MatchString(key) {
			matched = append(matched, key)
		}
	}

	return matched, nil
}

// liveKeys lists the present keys in sorted order, evicting expired ones
func (e *Engine) liveKeys() ([]string, error) {
	keys, err := e.store.Keys()
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// Expire sets a TTL of delay seconds on key. Fractional seconds are allowed
func (e *Engine) Expire(key string, delay any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("expire", key); err != nil {
		return 0, err
	}

	ms, err := delayMs("expire", key, delay, 1000)
	if err != nil {
		return 0, err
	}
	return e.expire(key, ms)
}

// PExpire sets a TTL of delay milliseconds on key
func (e *Engine) PExpire(key string, delay any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("pexpire", key); err != nil {
		return 0, err
	}

	ms, err := delayMs("pexpire", key, delay, 1)
	if err != nil {
		return 0, err
	}
	return e.expire(key, ms)
}

// ExpireAt makes key expire at the given unix time in seconds
func (e *Engine) ExpireAt(key string, timestamp any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("expireat", key); err != nil {
		return 0, err
	}

	return e.expireAt("expireat", key, timestamp, 1000)
}

// PExpireAt makes key expire at the given unix time in milliseconds
func (e *Engine) PExpireAt(key string, timestamp any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("pexpireat", key); err != nil {
		return 0, err
	}

	return e.expireAt("pexpireat", key, timestamp, 1)
}

func (e *Engine) expireAt(command, key string, timestamp any, unitMs float64) (int, error) {
	ts, ok := toNumber(timestamp)
	if !ok || math.Abs(ts*unitMs) > MaxSafeInteger {
		return 0, newError(KindDelayNotANumber, command, key)
	}

	deadline := int64(math.Round(ts * unitMs))
	delay := deadline - e.exp.Now()
	if delay < 0 {
		return 0, newError(KindTimestampAlreadyPassed, command, key)
	}
	if delay == 0 {
		return 0, newError(KindDelayNotANumber, command, key)
	}

	return e.expire(key, delay)
}

// expire replaces the TTL of an existing key. Missing keys are left alone
func (e *Engine) expire(key string, ms int64) (int, error) {
	ok, err := e.store.Exists(key)
	if err != nil || !ok {
		return 0, err
	}

	if err := e.exp.Set(key, ms, e.exp.Now()); err != nil {
		return 0, err
	}
	return 1, nil
}

// Persist removes the TTL of key. Returns 1 if there was one to remove
func (e *Engine) Persist(key string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("persist", key); err != nil {
		return 0, err
	}

	ok, err := e.store.Exists(key)
	if err != nil || !ok {
		return 0, err
	}

	has, err := e.exp.Has(key)
	if err != nil || !has {
		return 0, err
	}
	return 1, e.exp.Remove(key)
}

// TTL returns the remaining time to live of key in seconds, or -1 when the key is
// missing or has no TTL
func (e *Engine) TTL(key string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("ttl", key); err != nil {
		return 0, err
	}

	ms, ok, err := e.ttl(key)
	if err != nil || !ok {
		return -1, err
	}
	return float64(ms) / 1000, nil
}

// PTTL is TTL in milliseconds
func (e *Engine) PTTL(key string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("pttl", key); err != nil {
		return 0, err
	}

	ms, ok, err := e.ttl(key)
	if err != nil || !ok {
		return -1, err
	}
	return ms, nil
}

// PExpireTime returns the unix time in milliseconds at which key expires, or -1
// when the key is missing or has no TTL
func (e *Engine) PExpireTime(key string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("pexpiretime", key); err != nil {
		return 0, err
	}

	ok, err := e.store.Exists(key)
	if err != nil || !ok {
		return -1, err
	}

	rec, has, err := e.exp.Get(key)
	if err != nil || !has {
		return -1, err
	}
	return rec.Deadline(), nil
}

// Expires returns 1 if key exists and carries a TTL
func (e *Engine) Expires(key string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("expires", key); err != nil {
		return 0, err
	}

	_, ok, err := e.ttl(key)
	return boolToInt(ok), err
}

func (e *Engine) ttl(key string) (int64, bool, error) {
	ok, err := e.store.Exists(key)
	if err != nil || !ok {
		return 0, false, err
	}
	return e.exp.TTL(key)
}

// Type names the kind of value stored under key, "none" if it is missing
func (e *Engine) Type(key string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("type", key); err != nil {
		return "", err
	}

	v, ok, err := e.store.Retrieve(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return codec.TypeNone.String(), nil
	}
	return codec.TypeOf(v).String(), nil
}

// DBSize counts the live keys
func (e *Engine) DBSize() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, err := e.store.Keys()
	return len(keys), err
}

// FlushDB removes every entry and every expiration record
func (e *Engine) FlushDB() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, err := e.db.Keys()
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := e.db.Remove(key); err != nil {
			return err
		}
	}

	e.logger.Debug("database flushed")
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
