package server

import (
	"slices"
	"strings"

	"github.com/eternalApril/lunakv/internal/resp"
)

type commandMetadata struct {
	arity    int      // Arity includes the command name itself
	flags    []string // read, write, fast, denyoom, etc
	firstKey int      // 1-based index of the first key
	lastKey  int      // 1-based index of the last key
	step     int      // Step count for finding keys
}

var (
	commandRegistry = map[string]commandMetadata{
		"PING":        {-1, []string{"fast", "stale"}, 0, 0, 0},
		"COMMAND":     {-1, []string{"random", "loading", "stale"}, 0, 0, 0},
		"SAVE":        {1, []string{"admin", "noscript"}, 0, 0, 0},
		"BGSAVE":      {1, []string{"admin", "noscript"}, 0, 0, 0},
		"DBSIZE":      {1, []string{"readonly", "fast"}, 0, 0, 0},
		"FLUSHDB":     {1, []string{"write"}, 0, 0, 0},
		"GET":         {2, []string{"readonly", "fast"}, 1, 1, 1},
		"SET":         {-3, []string{"write", "denyoom"}, 1, 1, 1},
		"GETSET":      {3, []string{"write", "denyoom"}, 1, 1, 1},
		"MGET":        {-2, []string{"readonly", "fast"}, 1, -1, 1},
		"MSET":        {-3, []string{"write", "denyoom"}, 1, -1, 2},
		"SETNX":       {3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"MSETNX":      {-3, []string{"write", "denyoom"}, 1, -1, 2},
		"SETEX":       {4, []string{"write", "denyoom"}, 1, 1, 1},
		"PSETEX":      {4, []string{"write", "denyoom"}, 1, 1, 1},
		"INCR":        {2, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"INCRBY":      {3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"DECR":        {2, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"DECRBY":      {3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"MINCR":       {-2, []string{"write", "denyoom"}, 1, -1, 1},
		"MINCRBY":     {-3, []string{"write", "denyoom"}, 1, -1, 2},
		"MDECR":       {-2, []string{"write", "denyoom"}, 1, -1, 1},
		"MDECRBY":     {-3, []string{"write", "denyoom"}, 1, -1, 2},
		"APPEND":      {3, []string{"write", "denyoom"}, 1, 1, 1},
		"STRLEN":      {2, []string{"readonly", "fast"}, 1, 1, 1},
		"DEL":         {-2, []string{"write"}, 1, -1, 1},
		"EXISTS":      {2, []string{"readonly", "fast"}, 1, 1, 1},
		"RENAME":      {3, []string{"write"}, 1, 2, 1},
		"RENAMENX":    {3, []string{"write", "fast"}, 1, 2, 1},
		"GETKEY":      {2, []string{"readonly"}, 0, 0, 0},
		"GETKEYALL":   {2, []string{"readonly"}, 0, 0, 0},
		"RANDOMKEY":   {1, []string{"readonly", "random"}, 0, 0, 0},
		"KEYS":        {2, []string{"readonly", "sort_for_script"}, 0, 0, 0},
		"EXPIRE":      {3, []string{"write", "fast"}, 1, 1, 1},
		"PEXPIRE":     {3, []string{"write", "fast"}, 1, 1, 1},
		"EXPIREAT":    {3, []string{"write", "fast"}, 1, 1, 1},
		"PEXPIREAT":   {3, []string{"write", "fast"}, 1, 1, 1},
		"EXPIRETIME":  {2, []string{"readonly", "fast"}, 1, 1, 1},
		"PEXPIRETIME": {2, []string{"readonly", "fast"}, 1, 1, 1},
		"PERSIST":     {2, []string{"write", "fast"}, 1, 1, 1},
		"TTL":         {2, []string{"readonly", "fast"}, 1, 1, 1},
		"PTTL":        {2, []string{"readonly", "fast"}, 1, 1, 1},
		"EXPIRES":     {2, []string{"readonly", "fast"}, 1, 1, 1},
		"TYPE":        {2, []string{"readonly", "fast"}, 1, 1, 1},
		"LPUSH":       {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"RPUSH":       {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"LPUSHX":      {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"RPUSHX":      {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"LLEN":        {2, []string{"readonly", "fast"}, 1, 1, 1},
		"LRANGE":      {4, []string{"readonly"}, 1, 1, 1},
		"LREM":        {4, []string{"write"}, 1, 1, 1},
		"LPOP":        {2, []string{"write", "fast"}, 1, 1, 1},
		"RPOP":        {2, []string{"write", "fast"}, 1, 1, 1},
		"LINSERT":     {5, []string{"write", "denyoom"}, 1, 1, 1},
		"LINDEX":      {3, []string{"readonly"}, 1, 1, 1},
	}
)

// checkArity reports whether argc arguments, the command name excluded, fit the
// registered arity. A negative arity is a minimum
func (m commandMetadata) checkArity(argc int) bool {
	n := argc + 1
	if m.arity < 0 {
		return n >= -m.arity
	}
	return n == m.arity
}

func (m commandMetadata) isWrite() bool {
	return slices.Contains(m.flags, "write")
}

// commandDoc stores a description for the command
type commandDoc struct {
	summary    string
	complexity string
	group      string
	since      string
}

// commandDocsRegistry documentation registry
var commandDocsRegistry = map[string]commandDoc{
	"PING": {
		summary:    "Ping the server.",
		complexity: "O(1)",
		group:      "connection",
		since:      "1.0.0",
	},
	"COMMAND": {
		summary:    "Get array of command details.",
		complexity: "O(N) where N is the number of commands to look up.",
		group:      "server",
		since:      "1.0.0",
	},
	"SAVE": {
		summary:    "Synchronously save the dataset to disk.",
		complexity: "O(N) where N is the total number of keys in all databases.",
		group:      "server",
		since:      "1.0.0",
	},
	"BGSAVE": {
		summary:    "Asynchronously save the dataset to disk.",
		complexity: "O(1)",
		group:      "server",
		since:      "1.0.0",
	},
	"DBSIZE": {
		summary:    "Return the number of keys in the selected database.",
		complexity: "O(N) where N is the number of keys, expired keys are evicted on the way.",
		group:      "server",
		since:      "1.0.0",
	},
	"FLUSHDB": {
		summary:    "Remove all keys from the current database.",
		complexity: "O(N) where N is the number of keys in the selected database.",
		group:      "server",
		since:      "1.0.0",
	},
	"GET": {
		summary:    "Get the value of a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"SET": {
		summary:    "Set the value of a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"GETSET": {
		summary:    "Set the value of a key and return its old value.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"MGET": {
		summary:    "Get the values of all the given keys.",
		complexity: "O(N) where N is the number of keys to retrieve.",
		group:      "string",
		since:      "1.0.0",
	},
	"MSET": {
		summary:    "Set multiple keys to multiple values.",
		complexity: "O(N) where N is the number of keys to set.",
		group:      "string",
		since:      "1.0.0",
	},
	"SETNX": {
		summary:    "Set the value of a key, only if the key does not exist.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"MSETNX": {
		summary:    "Set multiple keys to multiple values, only if none of the keys exist.",
		complexity: "O(N) where N is the number of keys to set.",
		group:      "string",
		since:      "1.0.0",
	},
	"SETEX": {
		summary:    "Set the value and expiration of a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"PSETEX": {
		summary:    "Set the value and expiration in milliseconds of a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"INCR": {
		summary:    "Increment the integer value of a key by one.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"INCRBY": {
		summary:    "Increment the integer value of a key by the given amount.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"DECR": {
		summary:    "Decrement the integer value of a key by one.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"DECRBY": {
		summary:    "Decrement the integer value of a key by the given number.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"MINCR": {
		summary:    "Increment the integer values of several keys by one.",
		complexity: "O(N) where N is the number of keys.",
		group:      "string",
		since:      "1.0.0",
	},
	"MINCRBY": {
		summary:    "Increment the integer values of several keys by the given amounts.",
		complexity: "O(N) where N is the number of keys.",
		group:      "string",
		since:      "1.0.0",
	},
	"MDECR": {
		summary:    "Decrement the integer values of several keys by one.",
		complexity: "O(N) where N is the number of keys.",
		group:      "string",
		since:      "1.0.0",
	},
	"MDECRBY": {
		summary:    "Decrement the integer values of several keys by the given amounts.",
		complexity: "O(N) where N is the number of keys.",
		group:      "string",
		since:      "1.0.0",
	},
	"APPEND": {
		summary:    "Append a value to a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"STRLEN": {
		summary:    "Get the length of the value stored in a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"DEL": {
		summary:    "Delete a key.",
		complexity: "O(N) where N is the number of keys that will be removed.",
		group:      "generic",
		since:      "1.0.0",
	},
	"EXISTS": {
		summary:    "Determine if a key exists.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"RENAME": {
		summary:    "Rename a key.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"RENAMENX": {
		summary:    "Rename a key, only if the new key does not exist.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"GETKEY": {
		summary:    "Find the first key holding the given value.",
		complexity: "O(N) where N is the number of keys in the database.",
		group:      "generic",
		since:      "1.0.0",
	},
	"GETKEYALL": {
		summary:    "Find every key holding the given value.",
		complexity: "O(N) where N is the number of keys in the database.",
		group:      "generic",
		since:      "1.0.0",
	},
	"RANDOMKEY": {
		summary:    "Return a random key from the keyspace.",
		complexity: "O(N) where N is the number of keys in the database.",
		group:      "generic",
		since:      "1.0.0",
	},
	"KEYS": {
		summary:    "Find all keys matching the given pattern.",
		complexity: "O(N) with N being the number of keys in the database.",
		group:      "generic",
		since:      "1.0.0",
	},
	"EXPIRE": {
		summary:    "Set a key's time to live in seconds.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"PEXPIRE": {
		summary:    "Set a key's time to live in milliseconds.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"EXPIREAT": {
		summary:    "Set the expiration for a key as a UNIX timestamp.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"PEXPIREAT": {
		summary:    "Set the expiration for a key as a UNIX timestamp specified in milliseconds.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"EXPIRETIME": {
		summary:    "Get the expiration Unix timestamp for a key.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"PEXPIRETIME": {
		summary:    "Get the expiration Unix timestamp for a key in milliseconds.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"PERSIST": {
		summary:    "Remove the expiration from a key.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"TTL": {
		summary:    "Get the time to live for a key in seconds.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"PTTL": {
		summary:    "Get the time to live for a key in milliseconds.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"EXPIRES": {
		summary:    "Determine if a key has a time to live.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"TYPE": {
		summary:    "Determine the type stored at key.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"LPUSH": {
		summary:    "Prepend one or multiple elements to a list.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"RPUSH": {
		summary:    "Append one or multiple elements to a list.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"LPUSHX": {
		summary:    "Prepend elements to a list, only if the list exists.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"RPUSHX": {
		summary:    "Append elements to a list, only if the list exists.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"LLEN": {
		summary:    "Get the length of a list.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"LRANGE": {
		summary:    "Get a range of elements from a list.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"LREM": {
		summary:    "Remove elements from a list.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"LPOP": {
		summary:    "Remove and get the first element in a list.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"RPOP": {
		summary:    "Remove and get the last element in a list.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"LINSERT": {
		summary:    "Insert an element before or after another element in a list.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
	"LINDEX": {
		summary:    "Get an element from a list by its index.",
		complexity: "O(N) where N is the length of the list.",
		group:      "list",
		since:      "1.0.0",
	},
}

func makeFlagsArray(flags []string) resp.Value {
	vals := make([]resp.Value, len(flags))
	for i, f := range flags {
		vals[i] = resp.MakeSimpleString(f)
	}
	return resp.MakeArray(vals)
}

func makeInfoCmdArray(name string) []resp.Value {
	return []resp.Value{
		resp.MakeBulkString(strings.ToLower(name)),
		resp.MakeInteger(int64(commandRegistry[name].arity)),
		makeFlagsArray(commandRegistry[name].flags),
		resp.MakeInteger(int64(commandRegistry[name].firstKey)),
		resp.MakeInteger(int64(commandRegistry[name].lastKey)),
		resp.MakeInteger(int64(commandRegistry[name].step)),
	}
}

// sortedCommandNames keeps COMMAND output stable between calls
func sortedCommandNames[T any](registry map[string]T) []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func getAllCommands() resp.Value {
	cmdArray := make([]resp.Value, 0, len(commandRegistry))
	for _, name := range sortedCommandNames(commandRegistry) {
		details := makeInfoCmdArray(name)
		cmdArray = append(cmdArray, resp.MakeArray(details))
	}
	return resp.MakeArray(cmdArray)
}

// getCommandsInfo returns the details of the named commands, null for unknown ones
func getCommandsInfo(args []resp.Value) resp.Value {
	cmdArray := make([]resp.Value, 0, len(args))
	for _, arg := range args {
		name := strings.ToUpper(arg.Text())
		if _, ok := commandRegistry[name]; !ok {
			cmdArray = append(cmdArray, resp.MakeNullArray())
			continue
		}
		cmdArray = append(cmdArray, resp.MakeArray(makeInfoCmdArray(name)))
	}
	return resp.MakeArray(cmdArray)
}

// getCommandsDocs returns documentation for specified commands or all commands
// Format: [Name, [Summary, val, Since, val...], Name, [...]]
func getCommandsDocs(args []resp.Value) resp.Value {
	var targets []string

	if len(args) == 0 {
		targets = sortedCommandNames(commandDocsRegistry)
	} else {
		targets = make([]string, 0, len(args))
		for _, arg := range args {
			targets = append(targets, strings.ToUpper(arg.Text()))
		}
	}

	result := make([]resp.Value, 0, len(targets)*2)

	for _, name := range targets {
		doc, ok := commandDocsRegistry[name]
		if !ok {
			continue
		}

		result = append(result, resp.MakeBulkString(strings.ToLower(name)))

		props := []resp.Value{
			resp.MakeBulkString("summary"),
			resp.MakeBulkString(doc.summary),
			resp.MakeBulkString("since"),
			resp.MakeBulkString(doc.since),
			resp.MakeBulkString("group"),
			resp.MakeBulkString(doc.group),
			resp.MakeBulkString("complexity"),
			resp.MakeBulkString(doc.complexity),
		}

		result = append(result, resp.MakeArray(props))
	}

	return resp.MakeArray(result)
}
