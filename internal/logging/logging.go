// Package logging builds the zap logger used across SubnetSweep and maps the
// CLI verbosity count onto zap levels.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Verbosity int

	// File enables a JSON log sink rotated by lumberjack. Empty disables it.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Level maps a verbosity count to a zap level:
// 0 = warn, 1 = info, 2 and above = debug.
func Level(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// New returns a console logger on stderr, teed into a rotating file when
// opts.File is set.
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(Level(opts.Verbosity))

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	if opts.File == "" {
		return zap.New(console), nil
	}

	if opts.MaxSizeMB < 0 || opts.MaxBackups < 0 || opts.MaxAgeDays < 0 {
		return nil, fmt.Errorf("invalid log rotation settings: size=%d backups=%d age=%d",
			opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays)
	}

	sink := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	file := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(sink),
		level,
	)
	return zap.New(zapcore.NewTee(console, file)), nil
}

// Maybe builds the message with msg and logs it only when lvl is enabled on
// l. Use it where building the message is not free.
func Maybe(l *zap.Logger, lvl zapcore.Level, msg func() string, fields ...zap.Field) {
	if l == nil || !l.Core().Enabled(lvl) {
		return
	}
	if ce := l.Check(lvl, msg()); ce != nil {
		ce.Write(fields...)
	}
}
