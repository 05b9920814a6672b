// testing.go
package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewTestLogger returns a Logger that writes JSON lines to w at debug level.
// This is useful for testing to intercept logger output.
func NewTestLogger(w io.Writer) Logger {
	encoderConfig := createEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(zapcore.DebugLevel),
	)
	return &zapLogger{
		zap:    zap.New(core),
		level:  LogLevelDebug,
		config: &LoggingConfig{DefaultLevel: string(LogLevelDebug)},
	}
}

// NewDiscardLogger returns a Logger that drops everything.
func NewDiscardLogger() Logger {
	return &zapLogger{
		zap:    zap.NewNop(),
		level:  LogLevelError,
		config: &LoggingConfig{DefaultLevel: string(LogLevelError)},
	}
}
