package server

import (
	"github.com/eternalApril/lunakv/internal/kv"
	"github.com/eternalApril/lunakv/internal/resp"
)

func lpush(req *request) resp.Value {
	return intReply(req.db.LPush(req.arg(0), req.argValues(1)...))
}

func rpush(req *request) resp.Value {
	return intReply(req.db.RPush(req.arg(0), req.argValues(1)...))
}

func lpushx(req *request) resp.Value {
	return intReply(req.db.LPushX(req.arg(0), req.argValues(1)...))
}

func rpushx(req *request) resp.Value {
	return intReply(req.db.RPushX(req.arg(0), req.argValues(1)...))
}

func llen(req *request) resp.Value {
	return intReply(req.db.LLen(req.arg(0)))
}

func lrange(req *request) resp.Value {
	start, ok := parseInt(req.args[1])
	if !ok {
		return errNotInteger
	}
	stop, ok := parseInt(req.args[2])
	if !ok {
		return errNotInteger
	}

	values, err := req.db.LRange(req.arg(0), start, stop)
	if err != nil {
		return errorReply(err)
	}
	return valuesReply(values)
}

func lrem(req *request) resp.Value {
	count, ok := parseInt(req.args[1])
	if !ok {
		return errNotInteger
	}
	return intReply(req.db.LRem(req.arg(0), count, req.arg(2)))
}

func lpop(req *request) resp.Value {
	v, err := req.db.LPop(req.arg(0))
	if err != nil {
		return errorReply(err)
	}
	return valueReply(v)
}

func rpop(req *request) resp.Value {
	v, err := req.db.RPop(req.arg(0))
	if err != nil {
		return errorReply(err)
	}
	return valueReply(v)
}

func linsert(req *request) resp.Value {
	position, ok := kv.ParsePosition(req.arg(1))
	if !ok {
		return errSyntax
	}
	return intReply(req.db.LInsert(req.arg(0), position, req.arg(2), req.arg(3)))
}

func lindex(req *request) resp.Value {
	index, ok := parseInt(req.args[1])
	if !ok {
		return errNotInteger
	}

	v, err := req.db.LIndex(req.arg(0), index)
	if err != nil {
		return errorReply(err)
	}
	return valueReply(v)
}
