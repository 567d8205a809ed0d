package server

import (
	"strings"

	"github.com/eternalApril/lunakv/internal/resp"
)

func del(req *request) resp.Value {
	return intReply(req.db.Del(req.argStrings(0)...))
}

func exists(req *request) resp.Value {
	return intReply(req.db.Exists(req.arg(0)))
}

func rename(req *request) resp.Value {
	return okReply(req.db.Rename(req.arg(0), req.arg(1)))
}

func renamenx(req *request) resp.Value {
	return intReply(req.db.RenameNX(req.arg(0), req.arg(1)))
}

func getkey(req *request) resp.Value {
	key, ok, err := req.db.GetKey(req.arg(0))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(key)
}

func getkeyall(req *request) resp.Value {
	keys, err := req.db.GetKeyAll(req.arg(0))
	if err != nil {
		return errorReply(err)
	}
	if keys == nil {
		return resp.MakeNullArray()
	}
	return stringsReply(keys)
}

func randomkey(req *request) resp.Value {
	key, ok, err := req.db.RandomKey()
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(key)
}

// keys takes a glob pattern as RESP clients send it
func keys(req *request) resp.Value {
	matched, err := req.db.Keys(globToRegexp(req.arg(0)))
	if err != nil {
		return errorReply(err)
	}
	return stringsReply(matched)
}

func expire(req *request) resp.Value {
	return intReply(req.db.Expire(req.arg(0), req.arg(1)))
}

func pexpire(req *request) resp.Value {
	return intReply(req.db.PExpire(req.arg(0), req.arg(1)))
}

func expireat(req *request) resp.Value {
	return intReply(req.db.ExpireAt(req.arg(0), req.arg(1)))
}

func pexpireat(req *request) resp.Value {
	return intReply(req.db.PExpireAt(req.arg(0), req.arg(1)))
}

func expiretime(req *request) resp.Value {
	at, err := req.db.PExpireTime(req.arg(0))
	if err != nil || at < 0 {
		return int64Reply(at, err)
	}
	return resp.MakeInteger(at / 1000)
}

func pexpiretime(req *request) resp.Value {
	return int64Reply(req.db.PExpireTime(req.arg(0)))
}

func persist(req *request) resp.Value {
	return intReply(req.db.Persist(req.arg(0)))
}

func ttl(req *request) resp.Value {
	return secondsReply(req.db.TTL(req.arg(0)))
}

func pttl(req *request) resp.Value {
	return int64Reply(req.db.PTTL(req.arg(0)))
}

func expires(req *request) resp.Value {
	return intReply(req.db.Expires(req.arg(0)))
}

func typeOf(req *request) resp.Value {
	name, err := req.db.Type(req.arg(0))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeSimpleString(name)
}

func dbsize(req *request) resp.Value {
	return intReply(req.db.DBSize())
}

func flushdb(req *request) resp.Value {
	return okReply(req.db.FlushDB())
}

// globToRegexp translates a Redis style glob (*, ?, [class], \ escapes) into an
// anchored regular expression
func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("(?s)^")

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "^") || strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		case '\\':
			if i+1 < len(pattern) {
				i++
				c = pattern[i]
			}
			writeLiteral(&b, c)
		default:
			writeLiteral(&b, c)
		}
	}

	b.WriteByte('$')
	return b.String()
}

func writeLiteral(b *strings.Builder, c byte) {
	if strings.IndexByte(`\.+*?()|[]{}^$`, c) >= 0 {
		b.WriteByte('\\')
	}
	b.WriteByte(c)
}
