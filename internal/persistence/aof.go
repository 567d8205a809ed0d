package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/eternalApril/lunakv/internal/resp"
	"go.uber.org/zap"
)

// FsyncPolicy decides when appended commands reach the disk
type FsyncPolicy string

const (
	FsyncAlways   FsyncPolicy = "always"   // flush and fsync after every command
	FsyncEverySec FsyncPolicy = "everysec" // flush and fsync once a second
	FsyncNo       FsyncPolicy = "no"       // flush once a second, the OS decides when to sync
)

var (
	// ErrUnknownFsync is returned for a policy other than always, everysec or no
	ErrUnknownFsync = errors.New("unknown AOF fsync policy")
	// ErrClosed is returned by Append once the log is closed
	ErrClosed = errors.New("AOF is closed")
)

// ParseFsyncPolicy validates a policy name. The empty string means everysec
func ParseFsyncPolicy(s string) (FsyncPolicy, error) {
	switch p := FsyncPolicy(s); p {
	case FsyncAlways, FsyncEverySec, FsyncNo:
		return p, nil
	case "":
		return FsyncEverySec, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFsync, s)
	}
}

// AOF is the append-only command log. Commands are RESP encoded and written by a
// background goroutine in the order Append receives them
type AOF struct {
	file     *os.File
	writer   *bufio.Writer
	filename string
	policy   FsyncPolicy

	queue chan []byte

	mu     sync.RWMutex // guards closed against concurrent Append
	closed bool
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewAOF opens (or creates) the log for appending and starts the disk writer
func NewAOF(filename string, policy string, logger *zap.Logger) (*AOF, error) {
	p, err := ParseFsyncPolicy(policy)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open AOF: %w", err)
	}

	aof := &AOF{
		file:     f,
		writer:   bufio.NewWriter(f),
		filename: filename,
		policy:   p,
		queue:    make(chan []byte, 10000), // absorbs write bursts
		logger:   logger.With(zap.String("aof", filename)),
	}

	aof.wg.Add(1)
	go aof.run()

	return aof, nil
}

// Append encodes the command and queues it for the disk writer.
// Blocks while the queue is full
func (a *AOF) Append(name string, args ...resp.Value) error {
	payload, err := resp.SerializeCommand(name, args)
	if err != nil {
		return fmt.Errorf("encode %s for AOF: %w", name, err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}

	a.queue <- payload
	return nil
}

func (a *AOF) run() {
	defer a.wg.Done()

	var tick <-chan time.Time
	if a.policy != FsyncAlways {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case p, ok := <-a.queue:
			if !ok {
				// queue closed and drained
				a.flush()
				a.sync()
				return
			}
			if _, err := a.writer.Write(p); err != nil {
				a.logger.Error("AOF write error", zap.Error(err))
				continue
			}

			if a.policy == FsyncAlways {
				a.flush()
				a.sync()
			}

		case <-tick:
			a.flush()
			if a.policy == FsyncEverySec {
				a.sync()
			}
		}
	}
}

func (a *AOF) flush() {
	if err := a.writer.Flush(); err != nil {
		a.logger.Error("AOF flush error", zap.Error(err))
	}
}

func (a *AOF) sync() {
	if err := a.file.Sync(); err != nil {
		a.logger.Error("AOF fsync error", zap.Error(err))
	}
}

// Close drains queued commands, syncs them to disk and closes the file.
// Closing twice is a no-op
func (a *AOF) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	return a.file.Close()
}
