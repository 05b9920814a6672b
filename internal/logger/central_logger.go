package logger

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// traceIDKey is the context key used for request tracing.
type traceIDKey struct{}

// ContextWithTraceID returns a context carrying a trace ID that WithContext picks up.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// CentralLogger owns the zap cores shared by every module logger.
type CentralLogger struct {
	zap    *zap.Logger
	config *LoggingConfig
	closer func() error
}

// NewCentralLogger builds the console and file cores described by cfg.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var cores []zapcore.Core
	closer := func() error { return nil }

	if cfg.Console != nil && cfg.Console.Enabled {
		level := cfg.Console.Level
		if level == "" {
			level = cfg.DefaultLevel
		}
		encoderConfig := createEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr),
			zap.NewAtomicLevelAt(toZapLevel(ParseLevel(level))),
		))
	}

	if cfg.FileOutput != nil && cfg.FileOutput.Enabled {
		core, closeFile, err := createRotatingFileCore(cfg.FileOutput, ParseLevel(cfg.DefaultLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to create file log output: %w", err)
		}
		cores = append(cores, core)
		closer = closeFile
	}

	if len(cores) == 0 {
		cores = append(cores, zapcore.NewNopCore())
	}

	return &CentralLogger{
		zap:    zap.New(zapcore.NewTee(cores...)),
		config: cfg,
		closer: closer,
	}, nil
}

// Module returns a logger scoped to the named module.
func (c *CentralLogger) Module(name string) Logger {
	return &zapLogger{
		zap:    c.zap.With(zap.String("module", name)),
		module: name,
		level:  c.config.levelFor(name),
		config: c.config,
	}
}

// Close flushes buffered entries and releases the log file.
func (c *CentralLogger) Close() error {
	_ = c.zap.Sync()
	return c.closer()
}

// zapLogger is the Logger implementation handed out to modules.
type zapLogger struct {
	zap    *zap.Logger
	module string
	level  LogLevel
	config *LoggingConfig
}

func (l *zapLogger) Module(name string) Logger {
	full := name
	if l.module != "" {
		full = l.module + "." + name
	}
	return &zapLogger{
		zap:    l.zap.With(zap.String("module", full)),
		module: full,
		level:  l.config.levelFor(full),
		config: l.config,
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{
		zap:    l.zap.With(toZapFields(fields)...),
		module: l.module,
		level:  l.level,
		config: l.config,
	}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	if traceID, ok := ctx.Value(traceIDKey{}).(string); ok && traceID != "" {
		return l.With(String("trace_id", traceID))
	}
	return l
}

func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	if levelRank(level) < levelRank(l.level) {
		return
	}
	if ce := l.zap.Check(toZapLevel(level), msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func (l *zapLogger) Flush() error {
	return l.zap.Sync()
}

func createEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "msg"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

func toZapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case uint:
			out = append(out, zap.Uint(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case []string:
			out = append(out, zap.Strings(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func levelRank(level LogLevel) int {
	switch level {
	case LogLevelDebug:
		return 0
	case LogLevelInfo:
		return 1
	case LogLevelWarn:
		return 2
	case LogLevelError:
		return 3
	default:
		return 1
	}
}
