package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Encode converts a value into the text stored in the storage primitive.
// Every value, strings included, is written as JSON text
func Encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return "", err
	}

	// json.Encoder terminates every document with a newline
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Decode parses stored text back into a value. Text that is not a single JSON
// document is returned unchanged as a literal string
func Decode(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}

	// trailing garbage means the text was never JSON
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return raw
	}

	return normalize(v)
}

// Normalize brings a caller supplied value into the canonical shape Decode produces,
// so values can be compared before and after a round trip
func Normalize(v any) (any, error) {
	raw, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return Decode(raw), nil
}

// KeyString canonicalises a key: strings are used as-is, anything else becomes its JSON text.
// Values JSON cannot encode, such as channels or NaN, return the encoder's error
func KeyString(key any) (string, error) {
	if s, ok := key.(string); ok {
		return s, nil
	}
	return Encode(key)
}

// Stringify renders a value as text: strings as-is, everything else as JSON.
// Values JSON cannot encode fall back to their fmt formatting
func Stringify(v any) string {
	s, err := KeyString(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// normalize replaces json.Number with int64 when the number is integral, float64 otherwise
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	default:
		return v
	}
}
