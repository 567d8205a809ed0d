package logger

import (
	"fmt"

	"github.com/eternalApril/lunakv/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger from the log section of the config.
// Level: debug, info, warn, error; anything else falls back to info.
// Format: json (production) or console (development, colored levels).
// Output: stdout, stderr or a file path, stdout when empty
func New(cfg config.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "json", "":
		zcfg = zap.NewProductionConfig()
		zcfg.Sampling = nil
	case "console":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}

	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{output}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	log, err := zcfg.Build(zap.Fields(zap.String("service", "lunakv")))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}
