package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

// DefaultConfig returns a console configuration for local runs
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// Option adjusts the logger built by New
type Option func(*options)

type options struct {
	extraCores []zapcore.Core
	fields     []zap.Field
}

// WithTee also writes every entry to core (e.g. the OpenTelemetry log bridge)
func WithTee(core zapcore.Core) Option {
	return func(o *options) {
		if core != nil {
			o.extraCores = append(o.extraCores, core)
		}
	}
}

// WithFields attaches fields to every entry
func WithFields(fields ...zap.Field) Option {
	return func(o *options) {
		o.fields = append(o.fields, fields...)
	}
}

// New creates a zap logger
func New(cfg *Config, opts ...Option) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	writer, err := openWriter(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg), writer, level)
	if len(o.extraCores) > 0 {
		core = zapcore.NewTee(append([]zapcore.Core{core}, o.extraCores...)...)
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(o.fields...),
	), nil
}

// ParseLevel converts a level name; empty means info
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func newEncoder(cfg *Config) zapcore.Encoder {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = DefaultConfig().TimeFormat
	}
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeFormat),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openWriter(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

// Sync flushes buffered entries, ignoring the EINVAL stdout returns on some platforms
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err != nil && strings.Contains(err.Error(), "invalid argument") {
		return nil
	}
	return err
}
