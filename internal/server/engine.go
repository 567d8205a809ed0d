package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eternalApril/lunakv/internal/config"
	"github.com/eternalApril/lunakv/internal/kv"
	"github.com/eternalApril/lunakv/internal/persistence"
	"github.com/eternalApril/lunakv/internal/resp"
	"github.com/eternalApril/lunakv/internal/storage"
	"go.uber.org/zap"
)

// Engine dispatches RESP commands onto a kv.Engine and owns persistence
type Engine struct {
	commands map[string]command // Registry of available commands (the key is the command name in uppercase)
	db       *kv.Engine
	snap     storage.Snapshotter // nil when the storage primitive cannot snapshot
	cfg      *config.Config
	stop     chan struct{} // closes background tasks
	stopOnce sync.Once
	logger   *zap.Logger

	aof       *persistence.AOF
	aofMu     sync.Mutex // keeps the AOF in execution order
	replaying bool       // set while the AOF is replayed, nothing is logged then

	rdb    *persistence.RDB
	saving atomic.Bool
}

// NewEngine wraps the storage primitive in a kv.Engine, registers the commands and
// restores persisted data: the AOF when enabled, the RDB snapshot otherwise
func NewEngine(s storage.Storage, cfg *config.Config, logger *zap.Logger, opts ...kv.Option) (*Engine, error) {
	engine := &Engine{
		commands: make(map[string]command),
		cfg:      cfg,
		stop:     make(chan struct{}),
		logger:   logger,
	}

	kvOpts := []kv.Option{kv.WithLogger(logger), kv.WithEvictHook(engine.logEviction)}
	engine.db = kv.New(s, append(kvOpts, opts...)...)
	engine.registerCommands()

	if cfg.Persistence.RDB.Enabled {
		snap, ok := s.(storage.Snapshotter)
		if ok {
			engine.snap = snap
			engine.rdb = persistence.NewRDB(cfg.Persistence.RDB.Filename, logger)
		} else {
			logger.Warn("storage backend cannot snapshot, RDB disabled",
				zap.String("backend", cfg.Storage.Backend),
			)
		}
	}

	if cfg.Persistence.AOF.Enabled {
		aof, err := persistence.NewAOF(
			cfg.Persistence.AOF.Filename,
			cfg.Persistence.AOF.Fsync,
			logger,
		)
		if err != nil {
			return nil, err
		}
		engine.aof = aof

		if err := engine.restoreAOF(); err != nil {
			aof.Close() //nolint:errcheck
			return nil, err
		}
	} else if engine.rdb != nil {
		if err := engine.rdb.Load(engine.snap); errors.Is(err, persistence.ErrIncompatibleSnapshot) {
			logger.Warn("RDB file ignored, starting empty", zap.Error(err))
		} else if err != nil {
			logger.Error("Failed to load RDB", zap.Error(err))
		}
	}

	if engine.rdb != nil && cfg.Persistence.RDB.Interval != "" {
		interval, err := time.ParseDuration(cfg.Persistence.RDB.Interval)
		if err != nil {
			logger.Error("Invalid RDB interval, auto-save disabled", zap.Error(err))
		} else {
			go engine.startAutoSave(interval)
		}
	}

	return engine, nil
}

// KV exposes the command engine for in-process use
func (e *Engine) KV() *kv.Engine {
	return e.db
}

func (e *Engine) startAutoSave(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go func() {
				if err := e.save(); err != nil {
					e.logger.Error("Auto-save RDB failed", zap.Error(err))
				}
			}()
		case <-e.stop:
			return
		}
	}
}

var errSaveInProgress = errors.New("background save already in progress")

// save writes one snapshot at a time
func (e *Engine) save() error {
	if !e.saving.CompareAndSwap(false, true) {
		return errSaveInProgress
	}
	defer e.saving.Store(false)

	return e.rdb.Save(consistentSnapshot{Snapshotter: e.snap, db: e.db})
}

// consistentSnapshot copies the storage into memory under the engine's lock, so an
// entry and its expiration record are always saved together. The disk write
// happens after the lock is released
type consistentSnapshot struct {
	storage.Snapshotter
	db *kv.Engine
}

func (c consistentSnapshot) Snapshot(w io.Writer) error {
	var buf bytes.Buffer
	if err := c.db.Exclusive(func() error {
		return c.Snapshotter.Snapshot(&buf)
	}); err != nil {
		return err
	}

	_, err := buf.WriteTo(w)
	return err
}

func (e *Engine) restoreAOF() error {
	e.replaying = true
	defer func() { e.replaying = false }()

	e.logger.Info("Restoring AOF...", zap.String("file", e.cfg.Persistence.AOF.Filename))

	applied, err := e.aof.Replay(func(name string, args []resp.Value) {
		res := e.Execute(name, args)

		// the deadline passed while the server was down
		if res.IsError() && name == "PEXPIREAT" && len(args) > 0 {
			if _, err := e.db.Del(args[0].Text()); err != nil {
				e.logger.Error("AOF replay: drop expired key", zap.Error(err))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("replay AOF: %w", err)
	}

	e.logger.Info("AOF restore finished", zap.Int("commands", applied))
	return nil
}

// register adds a new command to the engine. The command name is uppercase and
// must have an entry in commandRegistry
func (e *Engine) register(name string, cmd command) {
	name = strings.ToUpper(name)
	if _, ok := commandRegistry[name]; !ok {
		panic("server: no metadata for command " + name)
	}
	e.commands[name] = cmd
}

// registerCommands fills the registry with every supported command
func (e *Engine) registerCommands() {
	e.register("PING", commandFunc(ping))
	e.register("COMMAND", commandFunc(cmd))
	e.register("DBSIZE", commandFunc(dbsize))
	e.register("FLUSHDB", commandFunc(flushdb))

	e.register("GET", commandFunc(get))
	e.register("SET", commandFunc(set))
	e.register("GETSET", commandFunc(getset))
	e.register("MGET", commandFunc(mget))
	e.register("MSET", commandFunc(mset))
	e.register("SETNX", commandFunc(setnx))
	e.register("MSETNX", commandFunc(msetnx))
	e.register("SETEX", commandFunc(setex))
	e.register("PSETEX", commandFunc(psetex))
	e.register("INCR", commandFunc(incr))
	e.register("INCRBY", commandFunc(incrby))
	e.register("DECR", commandFunc(decr))
	e.register("DECRBY", commandFunc(decrby))
	e.register("MINCR", commandFunc(mincr))
	e.register("MINCRBY", commandFunc(mincrby))
	e.register("MDECR", commandFunc(mdecr))
	e.register("MDECRBY", commandFunc(mdecrby))
	e.register("APPEND", commandFunc(appendValue))
	e.register("STRLEN", commandFunc(strlen))

	e.register("DEL", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("RENAME", commandFunc(rename))
	e.register("RENAMENX", commandFunc(renamenx))
	e.register("GETKEY", commandFunc(getkey))
	e.register("GETKEYALL", commandFunc(getkeyall))
	e.register("RANDOMKEY", commandFunc(randomkey))
	e.register("KEYS", commandFunc(keys))
	e.register("EXPIRE", commandFunc(expire))
	e.register("PEXPIRE", commandFunc(pexpire))
	e.register("EXPIREAT", commandFunc(expireat))
	e.register("PEXPIREAT", commandFunc(pexpireat))
	e.register("EXPIRETIME", commandFunc(expiretime))
	e.register("PEXPIRETIME", commandFunc(pexpiretime))
	e.register("PERSIST", commandFunc(persist))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("EXPIRES", commandFunc(expires))
	e.register("TYPE", commandFunc(typeOf))

	e.register("LPUSH", commandFunc(lpush))
	e.register("RPUSH", commandFunc(rpush))
	e.register("LPUSHX", commandFunc(lpushx))
	e.register("RPUSHX", commandFunc(rpushx))
	e.register("LLEN", commandFunc(llen))
	e.register("LRANGE", commandFunc(lrange))
	e.register("LREM", commandFunc(lrem))
	e.register("LPOP", commandFunc(lpop))
	e.register("RPOP", commandFunc(rpop))
	e.register("LINSERT", commandFunc(linsert))
	e.register("LINDEX", commandFunc(lindex))

	e.register("SAVE", commandFunc(func(_ *request) resp.Value {
		if e.rdb == nil {
			return resp.MakeError("ERR RDB disabled")
		}
		if err := e.save(); err != nil {
			return errorReply(err)
		}
		return replyOK
	}))

	e.register("BGSAVE", commandFunc(func(_ *request) resp.Value {
		if e.rdb == nil {
			return resp.MakeError("ERR RDB disabled")
		}
		if e.saving.Load() {
			return errorReply(errSaveInProgress)
		}
		go func() {
			if err := e.save(); err != nil {
				e.logger.Error("Background save failed", zap.Error(err))
			}
		}()
		return resp.MakeSimpleString("Background saving started")
	}))
}

// Execute finds the command by name and executes it with the passed arguments.
// If the command is not found, returns an error in the RESP format
func (e *Engine) Execute(name string, args []resp.Value) resp.Value {
	name = strings.ToUpper(name)

	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		return resp.MakeError(fmt.Sprintf("ERR unknown command '%s'", name))
	}

	meta := commandRegistry[name]
	if !meta.checkArity(len(args)) {
		return resp.MakeErrorWrongNumberOfArguments(strings.ToLower(name))
	}

	if e.aof != nil {
		e.aofMu.Lock()
		defer e.aofMu.Unlock()
	}

	res := cmd.execute(&request{args: args, db: e.db})

	if e.aof != nil && !e.replaying && meta.isWrite() && (!res.IsError() || isBatch(name)) {
		e.appendLog(name, args, res)
	}

	return res
}

// isBatch names the commands that can fail after changing some keys. They are
// logged even when failing, replay stops at the same key
func isBatch(name string) bool {
	switch name {
	case "MINCR", "MINCRBY", "MDECR", "MDECRBY":
		return true
	}
	return false
}

// appendLog writes a successful write command to the AOF. Relative expirations are
// rewritten to PEXPIREAT with the absolute deadline so a replay does not extend them
func (e *Engine) appendLog(name string, args []resp.Value, res resp.Value) {
	switch name {
	case "EXPIRE", "PEXPIRE", "EXPIREAT", "PEXPIREAT":
		if res.Integer == 1 {
			e.logExpireAt(args[0])
		}
	case "SETEX", "PSETEX":
		e.logCommand("SET", args[0], args[2])
		e.logExpireAt(args[0])
	case "SET":
		if res.IsNull {
			return
		}

		opts, _, _ := parseSetOptions(args[2:])
		if opts.KeepTTL {
			e.logCommand("SET", args[0], args[1], resp.MakeBulkString("KEEPTTL"))
			return
		}

		e.logCommand("SET", args[0], args[1])
		if opts.ExpireMs > 0 || opts.ExpireAtMs > 0 {
			e.logExpireAt(args[0])
		}
	default:
		e.logCommand(name, args...)
	}
}

func (e *Engine) logExpireAt(key resp.Value) {
	at, err := e.db.PExpireTime(key.Text())
	if err != nil {
		e.logger.Error("Failed to read deadline for AOF", zap.Error(err))
		return
	}
	if at < 0 {
		return
	}

	e.logCommand("PEXPIREAT", key, resp.MakeBulkString(strconv.FormatInt(at, 10)))
}

func (e *Engine) logCommand(name string, args ...resp.Value) {
	if err := e.aof.Append(name, args...); err != nil {
		e.logger.Error("Failed to append command to AOF", zap.String("cmd", name), zap.Error(err))
	}
}

// logEviction records lazily expired keys so the AOF sees the same deletions
func (e *Engine) logEviction(key string) {
	if e.aof == nil || e.replaying {
		return
	}
	e.logCommand("DEL", resp.MakeBulkString(key))
}

// Shutdown stops background tasks, writes a final snapshot when RDB is enabled
// and flushes the AOF
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.stop)

		if e.rdb != nil {
			if err := e.save(); err != nil {
				e.logger.Error("Final RDB save failed", zap.Error(err))
			}
		}

		if e.aof != nil {
			if err := e.aof.Close(); err != nil {
				e.logger.Error("AOF close failed", zap.Error(err))
			}
		}
	})
}
