package server

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/eternalApril/lunakv/internal/kv"
	"github.com/eternalApril/lunakv/internal/resp"
)

func get(req *request) resp.Value {
	v, err := req.db.Get(req.arg(0))
	if err != nil {
		return errorReply(err)
	}
	return valueReply(v)
}

// set supports the NX, XX, EX, PX, EXAT, PXAT and KEEPTTL modifiers
func set(req *request) resp.Value {
	opts, errReply, ok := parseSetOptions(req.args[2:])
	if !ok {
		return errReply
	}

	written, err := req.db.SetWithOptions(req.arg(0), req.arg(1), opts)
	if err != nil {
		return errorReply(err)
	}
	if !written {
		return resp.MakeNilBulkString()
	}
	return replyOK
}

func parseSetOptions(args []resp.Value) (kv.SetOptions, resp.Value, bool) {
	var opts kv.SetOptions
	ttlSet := false

	for i := 0; i < len(args); i++ {
		opt := strings.ToUpper(args[i].Text())

		switch opt {
		case "NX":
			if opts.Condition == kv.SetIfPresent {
				return opts, resp.MakeError("ERR NX cannot use with XX"), false
			}
			opts.Condition = kv.SetIfAbsent
		case "XX":
			if opts.Condition == kv.SetIfAbsent {
				return opts, resp.MakeError("ERR XX cannot use with NX"), false
			}
			opts.Condition = kv.SetIfPresent
		case "KEEPTTL":
			if ttlSet {
				return opts, resp.MakeError("ERR TTL already specified"), false
			}
			ttlSet = true
			opts.KeepTTL = true
		case "EX", "PX", "EXAT", "PXAT":
			if ttlSet {
				return opts, resp.MakeError("ERR TTL already specified"), false
			}
			if i+1 >= len(args) {
				return opts, errSyntax, false
			}
			ttlSet = true
			i++

			n, err := strconv.ParseInt(args[i].Text(), 10, 64)
			if err != nil {
				return opts, resp.MakeError("ERR value TTL is not integer"), false
			}
			if n <= 0 || ((opt == "EX" || opt == "EXAT") && n > math.MaxInt64/1000) {
				return opts, resp.MakeError("ERR invalid expire time in 'set' command"), false
			}

			switch opt {
			case "EX":
				opts.ExpireMs = n * 1000
			case "PX":
				opts.ExpireMs = n
			case "EXAT":
				opts.ExpireAtMs = n * 1000
			case "PXAT":
				opts.ExpireAtMs = n
			}
		default:
			return opts, resp.MakeError(fmt.Sprintf("ERR syntax error with command argument '%s'", opt)), false
		}
	}

	return opts, resp.Value{}, true
}

func getset(req *request) resp.Value {
	old, err := req.db.GetSet(req.arg(0), req.arg(1))
	if err != nil {
		return errorReply(err)
	}
	return valueReply(old)
}

func mget(req *request) resp.Value {
	values, err := req.db.MGet(req.argStrings(0)...)
	if err != nil {
		return errorReply(err)
	}
	return valuesReply(values)
}

func mset(req *request) resp.Value {
	return okReply(req.db.MSet(req.argValues(0)...))
}

func setnx(req *request) resp.Value {
	return intReply(req.db.SetNX(req.arg(0), req.arg(1)))
}

func msetnx(req *request) resp.Value {
	return intReply(req.db.MSetNX(req.argValues(0)...))
}

func setex(req *request) resp.Value {
	return okReply(req.db.SetEx(req.arg(0), req.arg(1), req.arg(2)))
}

func psetex(req *request) resp.Value {
	return okReply(req.db.PSetEx(req.arg(0), req.arg(1), req.arg(2)))
}

func incr(req *request) resp.Value {
	return int64Reply(req.db.Incr(req.arg(0)))
}

func incrby(req *request) resp.Value {
	return int64Reply(req.db.IncrBy(req.arg(0), req.arg(1)))
}

func decr(req *request) resp.Value {
	return int64Reply(req.db.Decr(req.arg(0)))
}

func decrby(req *request) resp.Value {
	return int64Reply(req.db.DecrBy(req.arg(0), req.arg(1)))
}

func mincr(req *request) resp.Value {
	return batchReply(req.db.MIncr(req.argStrings(0)...))
}

func mincrby(req *request) resp.Value {
	return batchReply(req.db.MIncrBy(req.argValues(0)...))
}

func mdecr(req *request) resp.Value {
	return batchReply(req.db.MDecr(req.argStrings(0)...))
}

func mdecrby(req *request) resp.Value {
	return batchReply(req.db.MDecrBy(req.argValues(0)...))
}

// batchReply reports a failed batch as an error even though the keys before the
// failing one were updated
func batchReply(results []int64, err error) resp.Value {
	if err != nil {
		return errorReply(err)
	}
	return integersReply(results)
}

func appendValue(req *request) resp.Value {
	return intReply(req.db.Append(req.arg(0), req.arg(1)))
}

func strlen(req *request) resp.Value {
	return intReply(req.db.StrLen(req.arg(0)))
}
