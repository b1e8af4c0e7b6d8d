// Package logging builds the process logger.
//
// The dashboard owns the terminal, so logs go to a file rather than stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder, level and destination.
type Options struct {
	Env   string // "production" for JSON, anything else for console
	Level string // debug, info, warn, error; invalid values fall back to info
	File  string // empty writes to stderr
}

// New builds a logger.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = timeEncoder
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		cfg.Encoding = "console"
	}
	cfg.Level.SetLevel(ParseLevel(opts.Level))
	cfg.Sampling = nil

	out := "stderr"
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		out = opts.File
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{out}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if s == "" || level.UnmarshalText([]byte(s)) != nil {
		return zapcore.InfoLevel
	}
	return level
}

// Sync flushes buffered entries, ignoring the error stderr returns on some systems.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format("2006-01-02 15:04:05 UTC"))
}
