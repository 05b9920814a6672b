package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" json:"default_level"` // default log level for all modules
	Console      *ConsoleOutput    `yaml:"console" json:"console"`             // console output configuration
	FileOutput   *FileOutput       `yaml:"file_output" json:"file_output"`     // file output configuration
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output uses a human-readable encoder.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled"` // enable console output
	Level   string `yaml:"level" json:"level"`     // log level for console output
}

// FileOutput represents file logging configuration.
// File output uses JSON with ISO8601 timestamps for log aggregation systems.
type FileOutput struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`                     // enable file output
	Path            string `yaml:"path" json:"path"`                           // log file path
	MaxSize         int    `yaml:"max_size" json:"max_size"`                   // maximum size in MB before rotation
	MaxAge          int    `yaml:"max_age" json:"max_age"`                     // maximum age in days to keep rotated logs (0 = no limit)
	MaxRotatedFiles int    `yaml:"max_rotated_files" json:"max_rotated_files"` // maximum number of rotated log files to keep (0 = no limit)
	Compress        bool   `yaml:"compress" json:"compress"`                   // compress rotated logs with gzip
	Level           string `yaml:"level" json:"level"`                         // log level for file output
}

// Default values for logging configuration.
// These match the defaults in conf/defaults.go.
const (
	DefaultLogLevel        = "info"
	DefaultLogPath         = "logs/trapwatch.log"
	DefaultMaxSize         = 100 // MB before rotation
	DefaultMaxAge          = 30  // days to keep rotated files
	DefaultMaxRotatedFiles = 10
)

// DefaultConfig returns a console-only configuration at info level.
func DefaultConfig() *LoggingConfig {
	return &LoggingConfig{
		DefaultLevel: DefaultLogLevel,
		Console: &ConsoleOutput{
			Enabled: true,
			Level:   DefaultLogLevel,
		},
		ModuleLevels: map[string]string{},
	}
}

// levelFor returns the effective level for a module, falling back to the default level.
func (c *LoggingConfig) levelFor(module string) LogLevel {
	if c == nil {
		return LogLevelInfo
	}
	if lvl, ok := c.ModuleLevels[module]; ok && lvl != "" {
		return ParseLevel(lvl)
	}
	if c.DefaultLevel == "" {
		return LogLevelInfo
	}
	return ParseLevel(c.DefaultLevel)
}
