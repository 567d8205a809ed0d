package server

import (
	"strings"

	"github.com/eternalApril/lunakv/internal/resp"
)

func ping(req *request) resp.Value {
	switch len(req.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.MakeBulkString(req.arg(0))
	default:
		return resp.MakeErrorWrongNumberOfArguments("ping")
	}
}

// cmd serves COMMAND, COMMAND DOCS, COMMAND INFO and COMMAND COUNT
func cmd(req *request) resp.Value {
	if len(req.args) == 0 {
		return getAllCommands()
	}

	switch strings.ToUpper(req.arg(0)) {
	case "DOCS":
		return getCommandsDocs(req.args[1:])
	case "INFO":
		return getCommandsInfo(req.args[1:])
	case "COUNT":
		return resp.MakeInteger(int64(len(commandRegistry)))
	default:
		return resp.MakeError("ERR unknown subcommand '" + req.arg(0) + "'")
	}
}
