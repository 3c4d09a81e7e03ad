package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and sink. Output is "stdout", "stderr"
// or a file path; an empty TimeFormat means ISO 8601.
type Config struct {
	Level      string
	Format     string // json or console
	Output     string
	TimeFormat string
}

// New builds the process logger. Extra cores, such as the OTLP log bridge,
// receive every entry alongside the main sink.
func New(cfg *Config, extra ...zapcore.Core) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &Config{Format: "console"}
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.Sampling = nil
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stdout"}
	if cfg.Output != "" {
		zc.OutputPaths = []string{cfg.Output}
	}

	enc := &zc.EncoderConfig
	enc.TimeKey = "time"
	enc.MessageKey = "msg"
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.TimeFormat != "" {
		enc.EncodeTime = zapcore.TimeEncoderOfLayout(cfg.TimeFormat)
	}
	if cfg.Format == "console" {
		zc.Encoding = "console"
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if len(extra) > 0 {
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(append([]zapcore.Core{c}, extra...)...)
		}))
	}
	return zc.Build(opts...)
}

// ParseLevel reads a level name case-insensitively; unknown names mean info
func ParseLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zapcore.WarnLevel
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}
