package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Option tweaks NewLogger.
type Option func(*options)

type options struct {
	stdout bool
}

// WithStdout also writes every entry to stderr.
func WithStdout(on bool) Option {
	return func(o *options) { o.stdout = on }
}

// NewLogger writes JSON logs to <logDir>/sitewatch.log with rotation.
// Unknown levels fall back to info.
func NewLogger(logDir, level string, opts ...Option) (*zap.Logger, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	lvl := zap.InfoLevel
	if level != "" {
		if l, err := zapcore.ParseLevel(level); err == nil {
			lvl = l
		}
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "sitewatch.log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(cfg)

	core := zapcore.NewCore(enc, w, lvl)
	if o.stdout {
		core = zapcore.NewTee(core, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl))
	}
	return zap.New(core), nil
}
