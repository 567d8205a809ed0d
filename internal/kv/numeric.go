package kv

import (
	"math"
	"strconv"
)

// MaxSafeInteger bounds every value produced or consumed by the increment commands.
// It is the largest integer a JSON number survives without losing precision
const MaxSafeInteger = 1<<53 - 1

// toInteger accepts integral numbers and strings that parse fully as base 10 integers
// within ±MaxSafeInteger
func toInteger(v any) (int64, bool) {
	var n int64

	switch t := v.(type) {
	case int:
		n = int64(t)
	case int8:
		n = int64(t)
	case int16:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint:
		if uint64(t) > MaxSafeInteger {
			return 0, false
		}
		n = int64(t)
	case uint8:
		n = int64(t)
	case uint16:
		n = int64(t)
	case uint32:
		n = int64(t)
	case uint64:
		if t > MaxSafeInteger {
			return 0, false
		}
		n = int64(t)
	case float32:
		return floatToInteger(float64(t))
	case float64:
		return floatToInteger(t)
	case string:
		parsed, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}

	if n > MaxSafeInteger || n < -MaxSafeInteger {
		return 0, false
	}
	return n, true
}

func floatToInteger(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > MaxSafeInteger || f < -MaxSafeInteger {
		return 0, false
	}
	return int64(f), true
}

// toNumber accepts any finite number or a string that parses fully as one
func toNumber(v any) (float64, bool) {
	var f float64

	switch t := v.(type) {
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case float32:
		f = float64(t)
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// delayMs converts a positive delay expressed in units of unitMs milliseconds.
// Delays beyond MaxSafeInteger milliseconds are rejected
func delayMs(command, key string, delay any, unitMs float64) (int64, error) {
	d, ok := toNumber(delay)
	if !ok || d <= 0 || d*unitMs > MaxSafeInteger {
		return 0, newError(KindDelayNotANumber, command, key)
	}

	ms := int64(math.Round(d * unitMs))
	if ms < 1 {
		ms = 1
	}
	return ms, nil
}
