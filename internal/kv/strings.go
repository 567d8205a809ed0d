package kv

import (
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"

	"github.com/eternalApril/lunakv/internal/codec"
)

// Get returns the value of key, nil when the key is missing
func (e *Engine) Get(key string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("get", key); err != nil {
		return nil, err
	}

	v, _, err := e.store.Retrieve(key)
	return v, err
}

// Set stores value under key and cancels any TTL it had
func (e *Engine) Set(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("set", key); err != nil {
		return err
	}

	return e.set(key, value)
}

func (e *Engine) set(key string, value any) error {
	if err := e.store.Store(key, value); err != nil {
		return err
	}
	return e.exp.Remove(key)
}

// SetCondition restricts when SetWithOptions writes
type SetCondition int

const (
	SetAlways SetCondition = iota
	SetIfAbsent
	SetIfPresent
)

// SetOptions carries the modifiers of a conditional SET
type SetOptions struct {
	Condition SetCondition
	// ExpireMs installs a fresh TTL when positive
	ExpireMs int64
	// ExpireAtMs installs a TTL ending at this unix millisecond when positive
	ExpireAtMs int64
	// KeepTTL keeps the current TTL instead of cancelling it
	KeepTTL bool
}

// SetWithOptions is Set with a write condition and TTL control. It returns false when
// the condition prevented the write
func (e *Engine) SetWithOptions(key string, value any, opts SetOptions) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("set", key); err != nil {
		return false, err
	}

	if opts.Condition != SetAlways {
		ok, err := e.store.Exists(key)
		if err != nil {
			return false, err
		}
		if ok == (opts.Condition == SetIfAbsent) {
			return false, nil
		}
	}

	if opts.ExpireMs > MaxSafeInteger || opts.ExpireAtMs > MaxSafeInteger {
		return false, newError(KindDelayNotANumber, "set", key)
	}

	ms := opts.ExpireMs
	if opts.ExpireAtMs > 0 {
		ms = opts.ExpireAtMs - e.exp.Now()
		if ms <= 0 {
			return false, newError(KindTimestampAlreadyPassed, "set", key)
		}
	}

	switch {
	case ms > 0:
		return true, e.setEx(key, ms, value)
	case opts.KeepTTL:
		return true, e.store.Store(key, value)
	default:
		return true, e.set(key, value)
	}
}

// GetSet stores value and returns the previous one. A previous value that is neither
// a string nor null is an error and nothing is written
func (e *Engine) GetSet(key string, value any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("getset", key); err != nil {
		return nil, err
	}

	old, _, err := e.store.Retrieve(key)
	if err != nil {
		return nil, err
	}
	if _, isString := old.(string); old != nil && !isString {
		return nil, newError(KindNonStringValue, "getset", key)
	}

	return old, e.set(key, value)
}

// MGet returns the value of every key, nil for missing ones
func (e *Engine) MGet(keys ...string) ([]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("mget", keys...); err != nil {
		return nil, err
	}

	values := make([]any, len(keys))
	for i, key := range keys {
		v, _, err := e.store.Retrieve(key)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return values, nil
}

// MSet stores alternating key, value arguments. TTLs of overwritten keys are kept
func (e *Engine) MSet(pairs ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, values, err := splitPairs("mset", pairs)
	if err != nil {
		return err
	}
	return e.mset(keys, values)
}

// MSetMap is MSet for a mapping. Keys are written in sorted order
func (e *Engine) MSetMap(m map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, values := splitMap(m)
	return e.mset(keys, values)
}

func (e *Engine) mset(keys []string, values []any) error {
	if err := checkKeys("mset", keys...); err != nil {
		return err
	}
	for i, key := range keys {
		if err := e.store.Store(key, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetNX stores value only if key is missing. Returns 1 when it did
func (e *Engine) SetNX(key string, value any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("setnx", key); err != nil {
		return 0, err
	}

	ok, err := e.store.Exists(key)
	if err != nil || ok {
		return 0, err
	}

	if err := e.store.Store(key, value); err != nil {
		return 0, err
	}
	return 1, nil
}

// MSetNX stores all pairs only if none of the keys exists. Returns 1 when it did
func (e *Engine) MSetNX(pairs ...any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, values, err := splitPairs("msetnx", pairs)
	if err != nil {
		return 0, err
	}
	return e.msetnx(keys, values)
}

// MSetNXMap is MSetNX for a mapping
func (e *Engine) MSetNXMap(m map[string]any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, values := splitMap(m)
	return e.msetnx(keys, values)
}

func (e *Engine) msetnx(keys []string, values []any) (int, error) {
	if err := checkKeys("msetnx", keys...); err != nil {
		return 0, err
	}
	for _, key := range keys {
		ok, err := e.store.Exists(key)
		if err != nil || ok {
			return 0, err
		}
	}

	if err := e.mset(keys, values); err != nil {
		return 0, err
	}
	return 1, nil
}

// splitPairs turns alternating key, value arguments into parallel slices
func splitPairs(command string, pairs []any) ([]string, []any, error) {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return nil, nil, newError(KindWrongArgumentCount, command, "")
	}

	keys := make([]string, 0, len(pairs)/2)
	values := make([]any, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, err := codec.KeyString(pairs[i])
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", command, err)
		}
		keys = append(keys, key)
		values = append(values, pairs[i+1])
	}

	return keys, values, nil
}

func splitMap(m map[string]any) ([]string, []any) {
	keys := slices.Sorted(maps.Keys(m))
	values := make([]any, len(keys))
	for i, key := range keys {
		values[i] = m[key]
	}
	return keys, values
}

// Incr adds one to the integer stored at key. A missing key counts as 0
func (e *Engine) Incr(key string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.incrBy("incr", key, 1, false)
}

// IncrBy adds amount to the integer stored at key
func (e *Engine) IncrBy(key string, amount any) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.incrBy("incrby", key, amount, false)
}

// Decr subtracts one from the integer stored at key
func (e *Engine) Decr(key string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.incrBy("decr", key, 1, true)
}

// DecrBy subtracts amount from the integer stored at key
func (e *Engine) DecrBy(key string, amount any) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.incrBy("decrby", key, amount, true)
}

// MIncr increments every key by one. Keys are processed in order and a failure stops
// the batch; increments already applied stay and their results are returned
func (e *Engine) MIncr(keys ...string) ([]int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mincr("mincr", keys, nil, false)
}

// MIncrBy increments alternating key, amount arguments
func (e *Engine) MIncrBy(pairs ...any) ([]int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, amounts, err := splitPairs("mincrby", pairs)
	if err != nil {
		return nil, err
	}
	return e.mincr("mincrby", keys, amounts, false)
}

// MDecr decrements every key by one
func (e *Engine) MDecr(keys ...string) ([]int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mincr("mdecr", keys, nil, true)
}

// MDecrBy decrements alternating key, amount arguments
func (e *Engine) MDecrBy(pairs ...any) ([]int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys, amounts, err := splitPairs("mdecrby", pairs)
	if err != nil {
		return nil, err
	}
	return e.mincr("mdecrby", keys, amounts, true)
}

// mincr applies incrBy per key. A nil amounts slice means one for every key
func (e *Engine) mincr(command string, keys []string, amounts []any, negate bool) ([]int64, error) {
	if err := checkKeys(command, keys...); err != nil {
		return nil, err
	}
	results := make([]int64, 0, len(keys))
	for i, key := range keys {
		var amount any = 1
		if amounts != nil {
			amount = amounts[i]
		}

		n, err := e.incrBy(command, key, amount, negate)
		if err != nil {
			return results, err
		}
		results = append(results, n)
	}

	return results, nil
}

// incrBy keeps the key's TTL. Both the operand and the result must be safe integers
func (e *Engine) incrBy(command, key string, amount any, negate bool) (int64, error) {
	if err := checkKeys(command, key); err != nil {
		return 0, err
	}
	delta, ok := toInteger(amount)
	if !ok {
		return 0, newError(KindNotIntegerOrOutOfRange, command, key)
	}
	if negate {
		delta = -delta
	}

	v, present, err := e.store.Retrieve(key)
	if err != nil {
		return 0, err
	}

	var current int64
	if present {
		if current, ok = toInteger(v); !ok {
			return 0, newError(KindNotIntegerOrOutOfRange, command, key)
		}
	}

	next := current + delta
	if next > MaxSafeInteger || next < -MaxSafeInteger {
		return 0, newError(KindNotIntegerOrOutOfRange, command, key)
	}

	if err := e.store.Store(key, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Append concatenates the text of value to the string at key and returns the new
// length in characters. A missing key starts from the empty string. A key holding
// anything but a string is left unchanged and 1 is returned
func (e *Engine) Append(key string, value any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("append", key); err != nil {
		return 0, err
	}

	v, present, err := e.store.Retrieve(key)
	if err != nil {
		return 0, err
	}
	if !present {
		v = ""
	}

	s, ok := v.(string)
	if !ok {
		return 1, nil
	}

	s += codec.Stringify(value)
	if err := e.store.Store(key, s); err != nil {
		return 0, err
	}
	return utf8.RuneCountInString(s), nil
}

// StrLen returns the length in characters of the string at key. Missing keys and
// null values count as 0
func (e *Engine) StrLen(key string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("strlen", key); err != nil {
		return 0, err
	}

	v, _, err := e.store.Retrieve(key)
	if err != nil || v == nil {
		return 0, err
	}

	s, ok := v.(string)
	if !ok {
		return 0, newError(KindNonStringValue, "strlen", key)
	}
	return utf8.RuneCountInString(s), nil
}

// SetEx stores value with a fresh TTL of delay seconds
func (e *Engine) SetEx(key string, delay, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("setex", key); err != nil {
		return err
	}

	ms, err := delayMs("setex", key, delay, 1000)
	if err != nil {
		return err
	}
	return e.setEx(key, ms, value)
}

// PSetEx stores value with a fresh TTL of delay milliseconds
func (e *Engine) PSetEx(key string, delay, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys("psetex", key); err != nil {
		return err
	}

	ms, err := delayMs("psetex", key, delay, 1)
	if err != nil {
		return err
	}
	return e.setEx(key, ms, value)
}

func (e *Engine) setEx(key string, ms int64, value any) error {
	if err := e.store.Store(key, value); err != nil {
		return err
	}
	return e.exp.Set(key, ms, e.exp.Now())
}
