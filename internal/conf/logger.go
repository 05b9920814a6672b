package conf

import "github.com/tphakala/trapwatch/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so that it follows
// the central logger installed after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}

// LoggerConfig converts the logging settings to the central logger configuration.
func (s *Settings) LoggerConfig() *logger.LoggingConfig {
	cfg := &logger.LoggingConfig{
		DefaultLevel: s.Logging.Level,
		ModuleLevels: s.Logging.ModuleLevels,
	}
	if s.Debug {
		cfg.DefaultLevel = string(logger.LogLevelDebug)
	}
	if s.Logging.Console {
		cfg.Console = &logger.ConsoleOutput{Enabled: true}
	}
	if s.Logging.File.Enabled {
		cfg.FileOutput = &logger.FileOutput{
			Enabled:         true,
			Path:            s.Logging.File.Path,
			MaxSize:         s.Logging.File.MaxSize,
			MaxAge:          s.Logging.File.MaxAge,
			MaxRotatedFiles: s.Logging.File.MaxBackups,
			Compress:        s.Logging.File.Compress,
		}
	}
	return cfg
}
