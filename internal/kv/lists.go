package kv

import (
	"errors"
	"slices"
	"strings"

	"github.com/eternalApril/lunakv/internal/codec"
)

// Position tells LInsert on which side of the pivot to insert
type Position int

const (
	Before Position = iota
	After
)

func (p Position) String() string {
	if p == After {
		return "AFTER"
	}
	return "BEFORE"
}

// ParsePosition accepts BEFORE or AFTER in any case
func ParsePosition(s string) (Position, bool) {
	switch strings.ToUpper(s) {
	case "BEFORE":
		return Before, true
	case "AFTER":
		return After, true
	default:
		return 0, false
	}
}

// list loads the list at key. A missing key gives ok == false, a present non-list
// value is ErrValueNotArray and a reserved key is ErrInvalidKey
func (e *Engine) list(command, key string) ([]any, bool, error) {
	if err := checkKeys(command, key); err != nil {
		return nil, false, err
	}
	v, present, err := e.store.Retrieve(key)
	if err != nil || !present {
		return nil, false, err
	}

	l, ok := v.([]any)
	if !ok {
		return nil, false, newError(KindValueNotArray, command, key)
	}
	return l, true, nil
}

// LPush prepends values one at a time, so the last argument ends up at the head.
// A missing key starts a new list. Returns the new length
func (e *Engine) LPush(key string, values ...any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.push("lpush", key, values, true, false)
}

// RPush appends values in order
func (e *Engine) RPush(key string, values ...any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.push("rpush", key, values, false, false)
}

// LPushX is LPush that only touches an existing list. Anything else returns 0
func (e *Engine) LPushX(key string, values ...any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.push("lpushx", key, values, true, true)
}

// RPushX is RPush that only touches an existing list
func (e *Engine) RPushX(key string, values ...any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.push("rpushx", key, values, false, true)
}

func (e *Engine) push(command, key string, values []any, left, onlyExisting bool) (int, error) {
	if len(values) == 0 {
		return 0, newError(KindWrongArgumentCount, command, key)
	}

	l, present, err := e.list(command, key)
	if onlyExisting && (!present || err != nil) {
		if errorKind(err) == KindValueNotArray {
			err = nil
		}
		return 0, err
	}
	if err != nil {
		return 0, err
	}

	if left {
		head := slices.Clone(values)
		slices.Reverse(head)
		l = append(head, l...)
	} else {
		l = append(l, values...)
	}

	if err := e.store.Store(key, l); err != nil {
		return 0, err
	}
	return len(l), nil
}

// LLen returns the length of the list at key, 0 when the key is missing
func (e *Engine) LLen(key string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, _, err := e.list("llen", key)
	return len(l), err
}

// LRange returns the elements between start and stop inclusive. Negative indexes
// count from the tail and out of range indexes are clamped
func (e *Engine) LRange(key string, start, stop int) ([]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, _, err := e.list("lrange", key)
	if err != nil {
		return nil, err
	}

	n := len(l)
	if start < 0 {
		start = max(start+n, 0)
	}
	if stop < 0 {
		stop += n
	}
	stop = min(stop, n-1)

	if start > stop {
		return []any{}, nil
	}
	return slices.Clone(l[start : stop+1]), nil
}

// LRem removes elements equal to value: the first count from the head when count
// is positive, from the tail when negative, all of them when zero.
// Returns how many were removed
func (e *Engine) LRem(key string, count int, value any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, present, err := e.list("lrem", key)
	if err != nil || !present {
		return 0, err
	}

	want, err := codec.Encode(value)
	if err != nil {
		return 0, err
	}

	limit := count
	if limit < 0 {
		limit = -limit
		slices.Reverse(l)
	}

	kept := make([]any, 0, len(l))
	removed := 0
	for _, item := range l {
		if (limit == 0 || removed < limit) && encodedEqual(item, want) {
			removed++
			continue
		}
		kept = append(kept, item)
	}

	if removed == 0 {
		return 0, nil
	}
	if count < 0 {
		slices.Reverse(kept)
	}

	if err := e.store.Store(key, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// LPop removes and returns the head of the list. Popping the last element
// leaves an empty list behind
func (e *Engine) LPop(key string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pop("lpop", key, true)
}

// RPop removes and returns the tail of the list
func (e *Engine) RPop(key string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pop("rpop", key, false)
}

func (e *Engine) pop(command, key string, left bool) (any, error) {
	l, _, err := e.list(command, key)
	if err != nil || len(l) == 0 {
		return nil, err
	}

	var v any
	if left {
		v, l = l[0], l[1:]
	} else {
		v, l = l[len(l)-1], l[:len(l)-1]
	}

	if err := e.store.Store(key, l); err != nil {
		return nil, err
	}
	return v, nil
}

// LInsert inserts value next to the first element equal to pivot. Returns the new
// length, -1 when the pivot is not found and 0 when the key is missing
func (e *Engine) LInsert(key string, position Position, pivot, value any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, present, err := e.list("linsert", key)
	if err != nil || !present {
		return 0, err
	}

	want, err := codec.Encode(pivot)
	if err != nil {
		return 0, err
	}

	at := slices.IndexFunc(l, func(item any) bool {
		return encodedEqual(item, want)
	})
	if at < 0 {
		return -1, nil
	}
	if position == After {
		at++
	}

	l = slices.Insert(l, at, value)
	if err := e.store.Store(key, l); err != nil {
		return 0, err
	}
	return len(l), nil
}

// LIndex returns the element at index, negative indexes counting from the tail.
// Out of range gives nil
func (e *Engine) LIndex(key string, index int) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, _, err := e.list("lindex", key)
	if err != nil {
		return nil, err
	}

	if index < 0 {
		index += len(l)
	}
	if index < 0 || index >= len(l) {
		return nil, nil
	}
	return l[index], nil
}

func encodedEqual(item any, want string) bool {
	got, err := codec.Encode(item)
	return err == nil && got == want
}

func errorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
