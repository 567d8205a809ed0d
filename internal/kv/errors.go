package kv

import (
	"fmt"

	"github.com/eternalApril/lunakv/internal/storage"
)

// Kind classifies the errors a command can fail with
type Kind int

const (
	KindWrongArgumentCount Kind = iota + 1
	KindNonStringValue
	KindNotIntegerOrOutOfRange
	KindNoSuchKey
	KindSourceEqualsDestination
	KindDelayNotANumber
	KindTimestampAlreadyPassed
	KindValueNotArray
	KindInvalidPattern
	KindInvalidKey
)

var kindMessages = map[Kind]string{
	KindWrongArgumentCount:      "wrong number of arguments",
	KindNonStringValue:          "non-string value",
	KindNotIntegerOrOutOfRange:  "value is not an integer or out of range",
	KindNoSuchKey:               "no such key",
	KindSourceEqualsDestination: "source and destination objects are the same",
	KindDelayNotANumber:         "delay not convertible to a number",
	KindTimestampAlreadyPassed:  "timestamp already passed",
	KindValueNotArray:           "value is not an array",
	KindInvalidPattern:          "invalid pattern",
	KindInvalidKey:              "key is in the reserved namespace",
}

// String returns the human readable message of the kind
func (k Kind) String() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every command. Command and Key describe where it happened
type Error struct {
	Kind    Kind
	Command string
	Key     string
}

func (e *Error) Error() string {
	switch {
	case e.Command != "" && e.Key != "":
		return fmt.Sprintf("%s %q: %s", e.Command, e.Key, e.Kind)
	case e.Command != "":
		return fmt.Sprintf("%s: %s", e.Command, e.Kind)
	default:
		return e.Kind.String()
	}
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrWrongArgumentCount      = &Error{Kind: KindWrongArgumentCount}
	ErrNonStringValue          = &Error{Kind: KindNonStringValue}
	ErrNotIntegerOrOutOfRange  = &Error{Kind: KindNotIntegerOrOutOfRange}
	ErrNoSuchKey               = &Error{Kind: KindNoSuchKey}
	ErrSourceEqualsDestination = &Error{Kind: KindSourceEqualsDestination}
	ErrDelayNotANumber         = &Error{Kind: KindDelayNotANumber}
	ErrTimestampAlreadyPassed  = &Error{Kind: KindTimestampAlreadyPassed}
	ErrValueNotArray           = &Error{Kind: KindValueNotArray}
	ErrInvalidPattern          = &Error{Kind: KindInvalidPattern}
	ErrInvalidKey              = &Error{Kind: KindInvalidKey}

	// ErrQuotaExceeded comes straight from the storage primitive and is never wrapped
	ErrQuotaExceeded = storage.ErrQuotaExceeded
)

func newError(kind Kind, command, key string) error {
	return &Error{Kind: kind, Command: command, Key: key}
}
