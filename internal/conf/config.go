// Package conf provides configuration management for trapwatch.
package conf

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is the prefix of environment variables overriding settings,
// e.g. TRAPWATCH_DATASTORE_TYPE=memory.
const EnvPrefix = "TRAPWATCH"

// Settings contains all configuration options of the service.
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable debug mode

	Logging      LoggingSettings      `yaml:"logging"`
	Pipeline     PipelineSettings     `yaml:"pipeline"`
	Classifier   ClassifierSettings   `yaml:"classifier"`
	Datastore    DatastoreSettings    `yaml:"datastore"`
	WebServer    WebServerSettings    `yaml:"webserver"`
	Images       ImageStoreSettings   `yaml:"images"`
	Notification NotificationSettings `yaml:"notification"`
	MQTT         MQTTSettings         `yaml:"mqtt"`
	Sentry       SentrySettings       `yaml:"sentry"`
	Metrics      MetricsSettings      `yaml:"metrics"`
}

// LoggingSettings controls console and file log output.
type LoggingSettings struct {
	Level        string            `yaml:"level"`        // debug, info, warn or error
	Console      bool              `yaml:"console"`      // log human readable output to stderr
	File         LogFileSettings   `yaml:"file"`         // rotating JSON log file
	ModuleLevels map[string]string `yaml:"modulelevels"` // per-module level overrides
}

// LogFileSettings controls the rotating log file.
type LogFileSettings struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxsize"`    // megabytes before rotation
	MaxAge     int    `yaml:"maxage"`     // days to keep rotated files
	MaxBackups int    `yaml:"maxbackups"` // rotated files to keep
	Compress   bool   `yaml:"compress"`
}

// PipelineSettings holds the decision engine tunables.
type PipelineSettings struct {
	Quality   QualitySettings   `yaml:"quality"`
	Duplicate DuplicateSettings `yaml:"duplicate"`
	Ensemble  EnsembleSettings  `yaml:"ensemble"`
	Temporal  TemporalSettings  `yaml:"temporal"`
	Species   SpeciesSettings   `yaml:"species"`
	Activity  ActivitySettings  `yaml:"activity"`
	Tiers     TierSettings      `yaml:"tiers"`
}

// QualitySettings holds the image quality thresholds.
type QualitySettings struct {
	BlurThreshold        float64 `yaml:"blurthreshold"`        // Laplacian variance below which an image is blurry
	DarkThreshold        float64 `yaml:"darkthreshold"`        // mean luma below which an image is too dark
	BrightThreshold      float64 `yaml:"brightthreshold"`      // mean luma above which an image is overexposed
	LowContrastThreshold float64 `yaml:"lowcontrastthreshold"` // luma standard deviation below which contrast is low
	GoodScore            float64 `yaml:"goodscore"`            // composite score for good quality
	MinScore             float64 `yaml:"minscore"`             // composite score below which nothing is saved
	Penalty              float64 `yaml:"penalty"`              // confidence factor when quality is not good
	MaxDimension         int     `yaml:"maxdimension"`         // down-scale larger images before analysis
	MaxPixels            int64   `yaml:"maxpixels"`            // refuse to decode larger images
}

// DuplicateSettings holds duplicate and burst detection parameters.
type DuplicateSettings struct {
	Window       time.Duration `yaml:"window"`
	Similarity   float64       `yaml:"similarity"`   // similarity at or above which an image is a duplicate
	Penalty      float64       `yaml:"penalty"`      // confidence factor for duplicates
	BurstCount   int           `yaml:"burstcount"`   // same-species detections that make a burst
	BurstPenalty float64       `yaml:"burstpenalty"` // confidence factor for bursts
}

// EnsembleSettings holds rank-gap parameters.
type EnsembleSettings struct {
	NearTieGap          float64 `yaml:"neartiegap"`
	WellSeparatedGap    float64 `yaml:"wellseparatedgap"`
	WellSeparatedMinTop float64 `yaml:"wellseparatedmintop"`
}

// TemporalSettings holds temporal context parameters.
type TemporalSettings struct {
	Window    time.Duration `yaml:"window"`
	MinRecent int           `yaml:"minrecent"` // detections in the window before boosting
	MaxBoost  float64       `yaml:"maxboost"`  // boost when one species fills the window
}

// SpeciesSettings holds the species tables.
type SpeciesSettings struct {
	DefaultThreshold     float64            `yaml:"defaultthreshold"`
	Thresholds           map[string]float64 `yaml:"thresholds"` // species to minimum confidence to save
	Aliases              map[string]string  `yaml:"aliases"`    // raw label to canonical name
	Filters              []string           `yaml:"filters"`    // labels of frames without a subject
	UnknownMinConfidence float64            `yaml:"unknownminconfidence"`
}

// ActivitySettings holds the activity prior configuration.
type ActivitySettings struct {
	Mode      string               `yaml:"mode"` // "hours" or "sun"
	Latitude  float64              `yaml:"latitude"`
	Longitude float64              `yaml:"longitude"`
	Profiles  map[string]string    `yaml:"profiles"` // species to profile name
	Hourly    map[string][]float64 `yaml:"hourly"`   // species to 24 hourly multipliers
}

// Activity period classification modes.
const (
	ActivityModeHours = "hours"
	ActivityModeSun   = "sun"
)

// TierSettings holds quality tier and notification cut-offs.
type TierSettings struct {
	HighConfidence   float64 `yaml:"highconfidence"`
	HighGap          float64 `yaml:"highgap"`
	MediumConfidence float64 `yaml:"mediumconfidence"`
	NotifyThreshold  float64 `yaml:"notifythreshold"`
}

// ClassifierSettings controls the classifier call made when an event arrives without predictions.
type ClassifierSettings struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DatastoreSettings selects and configures the detection store.
type DatastoreSettings struct {
	Type               string         `yaml:"type"` // sqlite, mysql or memory
	SQLite             SQLiteSettings `yaml:"sqlite"`
	MySQL              MySQLSettings  `yaml:"mysql"`
	SlowQueryThreshold time.Duration  `yaml:"slowquerythreshold"`
}

// SQLiteSettings configures the SQLite backend.
type SQLiteSettings struct {
	Path string `yaml:"path"`
}

// MySQLSettings configures the MySQL backend.
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Datastore types.
const (
	DatastoreSQLite = "sqlite"
	DatastoreMySQL  = "mysql"
	DatastoreMemory = "memory"
)

// WebServerSettings configures the ingestion server.
type WebServerSettings struct {
	Listen             string        `yaml:"listen"`
	MaxUploadSize      int64         `yaml:"maxuploadsize"`      // bytes
	SerializePerCamera bool          `yaml:"serializepercamera"` // evaluate and persist one event per camera at a time
	ReadTimeout        time.Duration `yaml:"readtimeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdowntimeout"`
}

// ImageStoreSettings controls saving of uploaded images.
type ImageStoreSettings struct {
	Save bool   `yaml:"save"`
	Path string `yaml:"path"`
}

// NotificationSettings configures push notifications.
type NotificationSettings struct {
	Enabled         bool              `yaml:"enabled"`
	URLs            []string          `yaml:"urls"` // shoutrrr service URLs
	QueueSize       int               `yaml:"queuesize"`
	Timeout         time.Duration     `yaml:"timeout"`
	RateLimit       RateLimitSettings `yaml:"ratelimit"`
	TitleTemplate   string            `yaml:"titletemplate"`
	MessageTemplate string            `yaml:"messagetemplate"`
}

// RateLimitSettings limits notifications per camera.
type RateLimitSettings struct {
	Interval time.Duration `yaml:"interval"` // one token per interval
	Burst    int           `yaml:"burst"`
}

// MQTTSettings configures the MQTT publisher.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"clientid"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Retain   bool   `yaml:"retain"`
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled"`
	DSN         string  `yaml:"dsn"`
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"samplerate"`
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads settings from configFile, or from the first config.yaml found in
// the default config paths when configFile is empty. Without any config file
// the embedded defaults are used. Environment variables override file values.
func Load(configFile string) (*Settings, error) {
	v, err := initViper(configFile)
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadFromBytes reads settings from YAML content layered over the defaults.
func LoadFromBytes(data []byte) (*Settings, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.New(fmt.Errorf("parse config: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaultConfig(v)
	return v
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) (*viper.Viper, error) {
	v := newViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		paths, err := GetDefaultConfigPaths()
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	err := v.ReadInConfig()
	if err == nil {
		GetLogger().Info("Loaded config file", logger.String("path", v.ConfigFileUsed()))
		return v, nil
	}

	var notFound viper.ConfigFileNotFoundError
	if configFile == "" && errors.As(err, &notFound) {
		GetLogger().Info("No config file found, using embedded defaults")
		if err := v.ReadConfig(bytes.NewReader(defaultConfig())); err != nil {
			return nil, errors.New(fmt.Errorf("parse embedded config: %w", err)).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
		return v, nil
	}

	return nil, errors.New(fmt.Errorf("read config file: %w", err)).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("path", configFile).
		Build()
}

func unmarshal(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("unmarshal config: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return settings, nil
}

// DefaultConfigYAML returns the embedded default configuration file.
func DefaultConfigYAML() []byte {
	return defaultConfig()
}

func defaultConfig() []byte {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// embedded at build time, absence is a build defect
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return data
}
