package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/eternalApril/lunakv/internal/resp"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds how long Serve waits for open connections after ctx is done
const ShutdownTimeout = 5 * time.Second

// Serve accepts connections on listener until ctx is done, then closes the listener,
// interrupts idle clients and waits for in-flight commands. The engine is not shut down
func Serve(ctx context.Context, listener net.Listener, engine *Engine, log *zap.Logger) error {
	var wg sync.WaitGroup

	stopAccept := context.AfterFunc(ctx, func() {
		listener.Close() //nolint:errcheck
	})
	defer stopAccept()

	var acceptErr error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				log.Warn("Accept error", zap.Error(err))
				continue
			}

			acceptErr = err
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConnection(ctx, conn, engine, log)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("All connections closed gracefully")
	case <-time.After(ShutdownTimeout):
		log.Warn("Shutdown timed out, forcing exit", zap.Duration("timeout", ShutdownTimeout))
	}

	return acceptErr
}

// handleConnection serves a single client until it disconnects or ctx is done
func handleConnection(ctx context.Context, conn net.Conn, engine *Engine, log *zap.Logger) {
	peer := NewPeer(conn)
	log = log.With(zap.String("addr", peer.RemoteAddr()))

	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected")
	}

	// wake a blocked read once the server is shutting down
	stopWatch := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now()) //nolint:errcheck
	})

	defer func() {
		stopWatch()
		peer.Close() //nolint:errcheck
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected", zap.Int("served", peer.Served()))
		}
	}()

	for {
		name, args, err := peer.Next()

		var reply resp.Value
		switch {
		case errors.Is(err, errNotCommand):
			log.Warn("invalid request type")
			reply = resp.MakeError("ERR " + err.Error())
		case err != nil:
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Warn("read command failed", zap.Error(err))
			}
			return
		case name == "":
			// empty array, nothing to answer
		default:
			reply = engine.Execute(name, args)
		}

		if reply.Type != 0 {
			if err := peer.Reply(reply); err != nil {
				log.Error("error writing response", zap.Error(err))
				return
			}
		}

		if err := peer.FlushIfIdle(); err != nil {
			return
		}
	}
}
