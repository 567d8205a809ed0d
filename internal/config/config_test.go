package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, "6380", cfg.Server.Port)
	assert.Equal(t, BackendSharded, cfg.Storage.Backend)
	assert.Equal(t, uint(32), cfg.Storage.Shards)
	assert.Zero(t, cfg.Storage.QuotaBytes)
	assert.Equal(t, "everysec", cfg.Persistence.AOF.Fsync)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
storage:
  backend: sqlite
  sqlite:
    path: data.db
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("LUNAKV_SERVER_PORT", "7000")

	cfg, err := Load(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "data.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		storage StorageConfig
		wantErr bool
	}{
		{"memory", StorageConfig{Backend: BackendMemory}, false},
		{"unknown backend", StorageConfig{Backend: "rocks"}, true},
		{"negative quota", StorageConfig{Backend: BackendSharded, QuotaBytes: -1}, true},
		{"sqlite without path", StorageConfig{Backend: BackendSQLite}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{Storage: tt.storage}).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFsync(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Backend: BackendMemory}}

	for _, fsync := range []string{"", "always", "everysec", "no"} {
		cfg.Persistence.AOF.Fsync = fsync
		assert.NoError(t, cfg.Validate(), fsync)
	}

	cfg.Persistence.AOF.Fsync = "hourly"
	assert.Error(t, cfg.Validate())
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LUNAKV_SERVER_PORT", "7000")
	t.Setenv("LUNAKV_STORAGE_BACKEND", BackendMemory)

	flags := pflag.NewFlagSet("lunakv", pflag.ContinueOnError)
	flags.String("port", "", "")
	flags.String("backend", "", "")
	require.NoError(t, flags.Parse([]string{"--port", "7100"}))

	cfg, err := Load(t.TempDir(), flags)
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Server.Port, "a set flag wins over the environment")
	assert.Equal(t, BackendMemory, cfg.Storage.Backend, "an unset flag does not shadow the environment")
}
