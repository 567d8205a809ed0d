package codec

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string is quoted", "bar", `"bar"`},
		{"integer", int64(42), "42"},
		{"float", 1.5, "1.5"},
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"list", []any{int64(1), "a"}, `[1,"a"]`},
		{"object keys sorted", map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{"html is not escaped", "<a&b>", `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"quoted string", `"bar"`, "bar"},
		{"literal string fallback", "bar", "bar"},
		{"number literal", "2", int64(2)},
		{"float literal", "2.5", 2.5},
		{"null", "null", nil},
		{"list", "[1,2,3]", []any{int64(1), int64(2), int64(3)}},
		{"nested object", `{"a":[1,{"b":null}]}`, map[string]any{"a": []any{int64(1), map[string]any{"b": nil}}}},
		{"trailing garbage stays literal", "1 2", "1 2"},
		{"empty text stays literal", "", ""},
		{"huge integer becomes float", "123456789012345678901234567890", 1.2345678901234568e+29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.raw))
		})
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  any
		want string
	}{
		{"string", "foo", "foo"},
		{"object", map[string]any{"name": "Yogi Bear"}, `{"name":"Yogi Bear"}`},
		{"number", 7, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeyString(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for name, key := range map[string]any{
		"channel":  make(chan int),
		"function": func() {},
		"nan":      math.NaN(),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := KeyString(key)
			assert.Error(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "foo", Stringify("foo"))
	assert.Equal(t, "[1,2]", Stringify([]any{1, 2}))
	assert.Equal(t, "NaN", Stringify(math.NaN()))
	assert.Equal(t, "+Inf", Stringify(math.Inf(1)))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeString, TypeOf("x"))
	assert.Equal(t, TypeNumber, TypeOf(int64(1)))
	assert.Equal(t, TypeNumber, TypeOf(1.5))
	assert.Equal(t, TypeNull, TypeOf(nil))
	assert.Equal(t, TypeList, TypeOf([]any{}))
	assert.Equal(t, TypeObject, TypeOf(map[string]any{}))
	assert.Equal(t, "list", TypeList.String())
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("plain")
	f.Add("null")
	f.Add(`{"a":1}`)
	f.Add("!@#$%^&*()")

	f.Fuzz(func(t *testing.T, s string) {
		if !utf8.ValidString(s) {
			t.Skip()
		}

		raw, err := Encode(s)
		if err != nil {
			t.Skip()
		}

		got := Decode(raw)
		if got != s {
			t.Errorf("round trip changed string: %q -> %q -> %#v", s, raw, got)
		}
	})
}
