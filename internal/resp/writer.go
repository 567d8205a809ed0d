package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrUnknownType is returned when a Value carries a type byte RESP2 does not define
var ErrUnknownType = errors.New("unknown RESP type")

// Encoder handles the serialization of RESP Value objects into an output stream.
// Output is buffered until Flush, so pipelined replies go out in one write
type Encoder struct {
	writer  *bufio.Writer
	scratch []byte
}

// NewEncoder initializes an Encoder with a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{writer: bufio.NewWriter(w)}
}

// Write serializes a RESP Value into the buffer
func (e *Encoder) Write(v Value) error {
	out, err := AppendValue(e.scratch[:0], v)
	if err != nil {
		return err
	}
	e.scratch = out

	_, err = e.writer.Write(out)
	return err
}

// Flush writes the buffered replies to the underlying stream
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}

// AppendValue appends the wire form of v to dst
func AppendValue(dst []byte, v Value) ([]byte, error) {
	switch v.Type {
	case TypeInteger:
		dst = appendHeader(dst, TypeInteger, v.Integer)

	case TypeSimpleString, TypeError:
		dst = append(dst, v.Type)
		dst = append(dst, v.String...)
		dst = append(dst, '\r', '\n')

	case TypeBulkString:
		if v.IsNull {
			return append(dst, "$-1\r\n"...), nil
		}
		dst = appendHeader(dst, TypeBulkString, int64(len(v.String)))
		dst = append(dst, v.String...)
		dst = append(dst, '\r', '\n')

	case TypeArray:
		if v.IsNull {
			return append(dst, "*-1\r\n"...), nil
		}
		dst = appendHeader(dst, TypeArray, int64(len(v.Array)))
		for _, el := range v.Array {
			var err error
			if dst, err = AppendValue(dst, el); err != nil {
				return dst, err
			}
		}

	default:
		return dst, fmt.Errorf("%w: %q", ErrUnknownType, v.Type)
	}

	return dst, nil
}

// appendHeader writes the type prefix, numeric value, and CRLF
func appendHeader(dst []byte, prefix byte, n int64) []byte {
	dst = append(dst, prefix)
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, '\r', '\n')
}
