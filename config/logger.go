package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger builds the file logger described by the logging config. The level
// "none" (or anything unrecognized) yields a no-op logger; the reader draws
// on stdout, so there is never a console core.
func (l Logging) Logger() (*zap.Logger, error) {
	var level zapcore.Level
	switch l.Level {
	case "debug":
		level = zap.DebugLevel
	case "normal":
		level = zap.InfoLevel
	default:
		return zap.NewNop(), nil
	}

	path := l.File
	if path == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving log path: %w", err)
		}
		path = filepath.Join(dir, "leaf.log")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(f),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core), nil
}
