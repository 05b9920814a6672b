// rotation.go
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// createRotatingFileCore creates a zapcore.Core that writes JSON to a rotating file.
// The returned closer releases the underlying file handle.
func createRotatingFileCore(out *FileOutput, fallback LogLevel) (zapcore.Core, func() error, error) {
	path := out.Path
	if path == "" {
		path = DefaultLogPath
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}

	maxSize := out.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: out.MaxRotatedFiles,
		MaxAge:     out.MaxAge,
		Compress:   out.Compress,
	}

	level := fallback
	if out.Level != "" {
		level = ParseLevel(out.Level)
	}

	// Always use non-color encoder for files
	encoderConfig := createEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zap.NewAtomicLevelAt(toZapLevel(level)),
	)
	return core, rotator.Close, nil
}
