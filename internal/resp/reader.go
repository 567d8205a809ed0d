package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	maxBulkLength  = 512 * 1024 * 1024
	maxArrayLength = 1024 * 1024
)

var (
	ErrInvalidEnding = errors.New("invalid line ending")
	ErrInvalidLength = errors.New("invalid length")
)

// Decoder reads RESP values from a stream. Lines without a type prefix are
// parsed as inline commands, the way redis-cli and telnet send them
type Decoder struct {
	rd *bufio.Reader
}

// NewDecoder wraps rd in a buffered reader
func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: bufio.NewReader(rd)}
}

// Buffered returns the number of bytes already read from the stream but not yet decoded
func (d *Decoder) Buffered() int {
	return d.rd.Buffered()
}

// Read decodes the next value
func (d *Decoder) Read() (Value, error) {
	_type, err := d.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	val := Value{
		Type: _type,
	}

	switch val.Type {
	case TypeSimpleString, TypeError:
		str, err := d.readLine()
		if err != nil {
			return Value{}, err
		}

		val.String = str
		return val, nil
	case TypeInteger:
		num, err := d.readInteger()
		if err != nil {
			return Value{}, err
		}

		val.Integer = num
		return val, nil
	case TypeBulkString:
		return d.readBulkString()
	case TypeArray:
		return d.readArray()
	}

	if err := d.rd.UnreadByte(); err != nil {
		return Value{}, err
	}
	return d.readInline()
}

// readLine reads up to CRLF and returns the line without it
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.rd.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, ErrInvalidEnding
	}

	return line[:len(line)-2], nil
}

func (d *Decoder) readInteger() (int64, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}

	// Command with integer cant be empty
	if len(line) == 0 {
		return 0, ErrInvalidEnding
	}

	return strconv.ParseInt(string(line), 10, 64)
}

func (d *Decoder) readBulkString() (Value, error) {
	n, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if n == -1 {
		return MakeNilBulkString(), nil
	}
	if n < 0 || n > maxBulkLength {
		return Value{}, fmt.Errorf("bulk string: %w %d", ErrInvalidLength, n)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(d.rd, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	if buf[n] != '\r' || buf[n+1] != '\n' {
		return Value{}, ErrInvalidEnding
	}

	return MakeBulkString(string(buf[:n])), nil
}

func (d *Decoder) readArray() (Value, error) {
	n, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if n == -1 {
		return MakeNullArray(), nil
	}
	if n < 0 || n > maxArrayLength {
		return Value{}, fmt.Errorf("array: %w %d", ErrInvalidLength, n)
	}

	elements := make([]Value, 0, n)
	for i := int64(0); i < n; i++ {
		v, err := d.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Value{}, io.ErrUnexpectedEOF
			}
			return Value{}, err
		}
		elements = append(elements, v)
	}

	return MakeArray(elements), nil
}

// readInline turns "SET key value\r\n" into an array of bulk strings.
// A bare LF is accepted as terminator
func (d *Decoder) readInline() (Value, error) {
	line, err := d.rd.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	fields := bytes.Fields(line)
	elements := make([]Value, len(fields))
	for i, f := range fields {
		elements[i] = MakeBulkString(string(f))
	}

	return MakeArray(elements), nil
}
