package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eternalApril/lunakv/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		want    zapcore.Level
		wantErr bool
	}{
		{"debug json", config.LogConfig{Level: "debug", Format: "json"}, zapcore.DebugLevel, false},
		{"warn console", config.LogConfig{Level: "warn", Format: "console"}, zapcore.WarnLevel, false},
		{"bad level falls back to info", config.LogConfig{Level: "loud", Format: "json"}, zapcore.InfoLevel, false},
		{"empty format is json", config.LogConfig{Level: "error"}, zapcore.ErrorLevel, false},
		{"bad format", config.LogConfig{Level: "info", Format: "xml"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.True(t, log.Core().Enabled(tt.want))
			assert.False(t, log.Core().Enabled(tt.want-1))
		})
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunakv.log")

	log, err := New(config.LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("key expired")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"key expired"`)
	assert.Contains(t, string(data), `"service":"lunakv"`)
}
