package server

import (
	"math"
	"strconv"

	"github.com/eternalApril/lunakv/internal/codec"
	"github.com/eternalApril/lunakv/internal/resp"
)

var (
	replyOK = resp.MakeSimpleString("OK")

	errSyntax     = resp.MakeError("ERR syntax error")
	errNotInteger = resp.MakeError("ERR value is not an integer or out of range")
)

// errorReply renders an engine error
func errorReply(err error) resp.Value {
	return resp.MakeError("ERR " + err.Error())
}

// valueReply renders an engine value: strings as they are, nil as a null bulk
// string and everything else as its JSON text
func valueReply(v any) resp.Value {
	switch t := v.(type) {
	case nil:
		return resp.MakeNilBulkString()
	case string:
		return resp.MakeBulkString(t)
	default:
		return resp.MakeBulkString(codec.Stringify(t))
	}
}

func valuesReply(values []any) resp.Value {
	out := make([]resp.Value, len(values))
	for i, v := range values {
		out[i] = valueReply(v)
	}
	return resp.MakeArray(out)
}

func stringsReply(values []string) resp.Value {
	out := make([]resp.Value, len(values))
	for i, v := range values {
		out[i] = resp.MakeBulkString(v)
	}
	return resp.MakeArray(out)
}

func integersReply(values []int64) resp.Value {
	out := make([]resp.Value, len(values))
	for i, v := range values {
		out[i] = resp.MakeInteger(v)
	}
	return resp.MakeArray(out)
}

func intReply(n int, err error) resp.Value {
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(int64(n))
}

func int64Reply(n int64, err error) resp.Value {
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(n)
}

func okReply(err error) resp.Value {
	if err != nil {
		return errorReply(err)
	}
	return replyOK
}

// secondsReply rounds fractional seconds to the nearest integer, -1 stays -1
func secondsReply(seconds float64, err error) resp.Value {
	if err != nil {
		return errorReply(err)
	}
	if seconds < 0 {
		return resp.MakeInteger(-1)
	}
	return resp.MakeInteger(int64(math.Round(seconds)))
}

// parseInt reads an integer argument such as a list index
func parseInt(v resp.Value) (int, bool) {
	n, err := strconv.Atoi(v.Text())
	return n, err == nil
}
