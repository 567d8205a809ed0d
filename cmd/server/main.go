package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/eternalApril/lunakv/internal/config"
	"github.com/eternalApril/lunakv/internal/logger"
	"github.com/eternalApril/lunakv/internal/server"
	"github.com/eternalApril/lunakv/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// version is set via ldflags: -X main.version=v1.0.0
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lunakv",
		Short:        "Key-value command engine served over RESP",
		Version:      version,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			return run(dir, cmd.Flags())
		},
	}

	flags := root.Flags()
	flags.String("config", ".", "Directory containing config.yaml")
	flags.String("host", "", "Listen host (default from config)")
	flags.StringP("port", "p", "", "Listen port (default from config)")
	flags.String("backend", "", "Storage backend: memory, sharded, sqlite")
	flags.String("sqlite-path", "", "Database path for the sqlite backend")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	return root
}

// openStorage builds the storage primitive selected in the config
func openStorage(cfg config.StorageConfig) (storage.Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMapStorage(cfg.QuotaBytes), noop, nil
	case config.BackendSharded:
		db, err := storage.NewShardedMapStorage(cfg.Shards, cfg.QuotaBytes)
		if err != nil {
			return nil, nil, err
		}
		return db, noop, nil
	case config.BackendSQLite:
		db, err := storage.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func run(configDir string, flags *pflag.FlagSet) error {
	cfg, err := config.Load(configDir, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("LunaKV starting",
		zap.String("version", version),
		zap.String("port", cfg.Server.Port),
		zap.String("backend", cfg.Storage.Backend),
	)

	db, closeStorage, err := openStorage(cfg.Storage)
	if err != nil {
		log.Error("cant initialize storage", zap.Error(err))
		return err
	}
	defer func() {
		if err := closeStorage(); err != nil {
			log.Error("close storage failed", zap.Error(err))
		}
	}()

	engine, err := server.NewEngine(db, cfg, log)
	if err != nil {
		log.Error("cant initialize engine", zap.Error(err))
		return err
	}
	defer engine.Shutdown()

	address := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Error("listener error", zap.Error(err))
		return err
	}
	log.Info("listening on", zap.String("address", address))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, listener, engine, log); err != nil {
		log.Warn("serve stopped with error", zap.Error(err))
	}

	log.Info("LunaKV stopped")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
