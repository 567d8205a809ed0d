package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backends accepted in storage.backend
const (
	BackendMemory  = "memory"
	BackendSharded = "sharded"
	BackendSQLite  = "sqlite"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Log         LogConfig         `mapstructure:"log"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// StorageConfig selects and sizes the storage primitive
type StorageConfig struct {
	Backend    string       `mapstructure:"backend"`     // memory, sharded, sqlite
	Shards     uint         `mapstructure:"shards"`      // sharded only, power of two
	QuotaBytes int64        `mapstructure:"quota_bytes"` // memory and sharded, 0 is unlimited
	SQLite     SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig defines where the sqlite backend keeps its database
type SQLiteConfig struct {
	Path string `mapstructure:"path"` // file path, file: DSN or :memory:
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// PersistenceConfig defines settings of AOF and RDB methods
type PersistenceConfig struct {
	AOF AOFConfig `mapstructure:"aof"`
	RDB RDBConfig `mapstructure:"rdb"`
}

// AOFConfig defines settings of AOF method
type AOFConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Filename string `mapstructure:"filename"`
	Fsync    string `mapstructure:"fsync"` // always, everysec, no
}

// RDBConfig defines settings of RDB method
type RDBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Filename string `mapstructure:"filename"`
	Interval string `mapstructure:"interval"`
}

// FlagBindings maps config keys to the command line flags that override them
var FlagBindings = map[string]string{
	"server.host":         "host",
	"server.port":         "port",
	"storage.backend":     "backend",
	"storage.sqlite.path": "sqlite-path",
	"log.level":           "log-level",
}

// Load reads config.yaml from dir (or the working directory), then applies
// LUNAKV_* environment variables and finally any flag in FlagBindings that was set.
// flags may be nil
func Load(dir string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("LUNAKV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSharded, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative, got %d", c.Storage.QuotaBytes)
	}

	switch c.Persistence.AOF.Fsync {
	case "", "always", "everysec", "no":
	default:
		return fmt.Errorf("unknown persistence.aof.fsync %q", c.Persistence.AOF.Fsync)
	}

	if c.Storage.Backend == BackendSQLite && c.Storage.SQLite.Path == "" {
		return errors.New("storage.sqlite.path is required for the sqlite backend")
	}

	return nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "6380")

	// Storage
	v.SetDefault("storage.backend", BackendSharded)
	v.SetDefault("storage.shards", 32)
	v.SetDefault("storage.quota_bytes", 0)
	v.SetDefault("storage.sqlite.path", "lunakv.db")

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	// Persistence
	v.SetDefault("persistence.aof.enabled", false)
	v.SetDefault("persistence.aof.filename", "appendonly.aof")
	v.SetDefault("persistence.aof.fsync", "everysec")

	v.SetDefault("persistence.rdb.enabled", true)
	v.SetDefault("persistence.rdb.filename", "dump.rdb")
	v.SetDefault("persistence.rdb.interval", "5s")
}
