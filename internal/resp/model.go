package resp

import "strings"

// RESP2 type prefixes
const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

// Value is one decoded or to-be-encoded RESP2 value
type Value struct {
	String  []byte // SimpleString, Error, BulkString
	Array   []Value
	Integer int64 // Integer
	Type    byte
	IsNull  bool // For nil BulkString and nil Array
}

// Text returns the payload of a string-like value
func (v Value) Text() string {
	return string(v.String)
}

// IsError reports whether the value is an error reply
func (v Value) IsError() bool {
	return v.Type == TypeError
}

// Command splits a request into its upper-cased name and arguments.
// ok is false for anything but a non-empty array
func (v Value) Command() (name string, args []Value, ok bool) {
	if v.Type != TypeArray || v.IsNull || len(v.Array) == 0 {
		return "", nil, false
	}
	return strings.ToUpper(v.Array[0].Text()), v.Array[1:], true
}
