package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/newthinker/sigfuse/internal/core"
)

// Config selects the log level and encoding
type Config struct {
	Level       string `mapstructure:"level"`  // debug, info, warn, error
	Format      string `mapstructure:"format"` // json or console
	Development bool   `mapstructure:"development"`
}

// New creates a zap logger. Development mode defaults to colored console
// output at debug level; production defaults to JSON at info.
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config

	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log level %q: %w", cfg.Level, err))
		}
		zc.Level = level
	}

	switch cfg.Format {
	case "":
	case "json", "console":
		zc.Encoding = cfg.Format
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log format %q", cfg.Format))
	}

	return zc.Build()
}

// Must creates a logger or panics
func Must(cfg Config) *zap.Logger {
	log, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return log
}
