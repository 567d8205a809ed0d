package server

import (
	"github.com/eternalApril/lunakv/internal/kv"
	"github.com/eternalApril/lunakv/internal/resp"
)

// request is what a handler sees: the arguments after the command name and the
// engine to run against
type request struct {
	args []resp.Value
	db   *kv.Engine
}

// arg returns argument i as a string
func (r *request) arg(i int) string {
	return r.args[i].Text()
}

// argStrings returns the arguments starting at from as strings
func (r *request) argStrings(from int) []string {
	out := make([]string, 0, len(r.args)-from)
	for _, a := range r.args[from:] {
		out = append(out, a.Text())
	}
	return out
}

// argValues returns the arguments starting at from as engine values
func (r *request) argValues(from int) []any {
	out := make([]any, 0, len(r.args)-from)
	for _, a := range r.args[from:] {
		out = append(out, a.Text())
	}
	return out
}

type command interface {
	execute(req *request) resp.Value
}

type commandFunc func(req *request) resp.Value

func (c commandFunc) execute(req *request) resp.Value {
	return c(req)
}
