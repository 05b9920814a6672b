// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tphakala/trapwatch/internal/activity"
	"github.com/tphakala/trapwatch/internal/logger"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateLoggingSettings(&settings.Logging)...)
	ve.Errors = append(ve.Errors, validatePipelineSettings(&settings.Pipeline)...)
	ve.Errors = append(ve.Errors, validateDatastoreSettings(&settings.Datastore)...)
	ve.Errors = append(ve.Errors, validateWebServerSettings(&settings.WebServer)...)
	ve.Errors = append(ve.Errors, validateNotificationSettings(&settings.Notification)...)
	ve.Errors = append(ve.Errors, validateMQTTSettings(&settings.MQTT)...)

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}
	if settings.Sentry.SampleRate < 0 || settings.Sentry.SampleRate > 1 {
		ve.Errors = append(ve.Errors, "sentry.samplerate must be between 0 and 1")
	}
	if settings.Metrics.Enabled && !strings.HasPrefix(settings.Metrics.Path, "/") {
		ve.Errors = append(ve.Errors, "metrics.path must start with /")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLoggingSettings(s *LoggingSettings) []string {
	var errs []string
	if !validLevel(s.Level) {
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", s.Level))
	}
	for module, level := range s.ModuleLevels {
		if !validLevel(level) {
			errs = append(errs, fmt.Sprintf("logging.modulelevels.%s %q is not a valid level", module, level))
		}
	}
	if s.File.Enabled && s.File.Path == "" {
		errs = append(errs, "logging.file.path is required when file logging is enabled")
	}
	return errs
}

func validLevel(level string) bool {
	switch strings.ToLower(level) {
	case string(logger.LogLevelDebug), string(logger.LogLevelInfo), string(logger.LogLevelWarn), "warning", string(logger.LogLevelError):
		return true
	}
	return false
}

func validatePipelineSettings(p *PipelineSettings) []string {
	var errs []string
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1, got %v", name, v))
		}
	}
	factor := func(name string, v float64) {
		if v <= 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in (0, 1], got %v", name, v))
		}
	}

	q := &p.Quality
	if q.BlurThreshold <= 0 {
		errs = append(errs, "pipeline.quality.blurthreshold must be positive")
	}
	if q.DarkThreshold < 0 || q.BrightThreshold > 255 || q.DarkThreshold >= q.BrightThreshold {
		errs = append(errs, "pipeline.quality.darkthreshold must be below brightthreshold within [0, 255]")
	}
	if q.MaxDimension < 0 {
		errs = append(errs, "pipeline.quality.maxdimension must not be negative")
	}
	if q.MaxPixels <= 0 {
		errs = append(errs, "pipeline.quality.maxpixels must be positive")
	}
	unit("pipeline.quality.goodscore", q.GoodScore)
	unit("pipeline.quality.minscore", q.MinScore)
	factor("pipeline.quality.penalty", q.Penalty)

	d := &p.Duplicate
	if d.Window <= 0 {
		errs = append(errs, "pipeline.duplicate.window must be positive")
	}
	if d.BurstCount < 1 {
		errs = append(errs, "pipeline.duplicate.burstcount must be at least 1")
	}
	unit("pipeline.duplicate.similarity", d.Similarity)
	factor("pipeline.duplicate.penalty", d.Penalty)
	factor("pipeline.duplicate.burstpenalty", d.BurstPenalty)

	unit("pipeline.ensemble.neartiegap", p.Ensemble.NearTieGap)
	unit("pipeline.ensemble.wellseparatedgap", p.Ensemble.WellSeparatedGap)
	unit("pipeline.ensemble.wellseparatedmintop", p.Ensemble.WellSeparatedMinTop)

	if p.Temporal.Window <= 0 {
		errs = append(errs, "pipeline.temporal.window must be positive")
	}
	if p.Temporal.MinRecent < 1 {
		errs = append(errs, "pipeline.temporal.minrecent must be at least 1")
	}
	unit("pipeline.temporal.maxboost", p.Temporal.MaxBoost)

	unit("pipeline.species.defaultthreshold", p.Species.DefaultThreshold)
	unit("pipeline.species.unknownminconfidence", p.Species.UnknownMinConfidence)
	for name, v := range p.Species.Thresholds {
		unit("pipeline.species.thresholds."+name, v)
	}

	errs = append(errs, validateActivitySettings(&p.Activity)...)

	unit("pipeline.tiers.highconfidence", p.Tiers.HighConfidence)
	unit("pipeline.tiers.highgap", p.Tiers.HighGap)
	unit("pipeline.tiers.mediumconfidence", p.Tiers.MediumConfidence)
	unit("pipeline.tiers.notifythreshold", p.Tiers.NotifyThreshold)
	return errs
}

func validateActivitySettings(a *ActivitySettings) []string {
	var errs []string
	switch a.Mode {
	case ActivityModeHours, "":
	case ActivityModeSun:
		if a.Latitude < -90 || a.Latitude > 90 {
			errs = append(errs, "pipeline.activity.latitude must be between -90 and 90")
		}
		if a.Longitude < -180 || a.Longitude > 180 {
			errs = append(errs, "pipeline.activity.longitude must be between -180 and 180")
		}
	default:
		errs = append(errs, fmt.Sprintf("pipeline.activity.mode %q must be %q or %q", a.Mode, ActivityModeHours, ActivityModeSun))
	}
	for species, name := range a.Profiles {
		if _, err := activity.ProfileByName(name); err != nil {
			errs = append(errs, fmt.Sprintf("pipeline.activity.profiles.%s: unknown profile %q", species, name))
		}
	}
	for species, curve := range a.Hourly {
		if len(curve) != 24 {
			errs = append(errs, fmt.Sprintf("pipeline.activity.hourly.%s must have 24 values, got %d", species, len(curve)))
		}
	}
	return errs
}

func validateDatastoreSettings(d *DatastoreSettings) []string {
	switch d.Type {
	case DatastoreSQLite:
		if d.SQLite.Path == "" {
			return []string{"datastore.sqlite.path is required for the sqlite datastore"}
		}
	case DatastoreMySQL:
		if d.MySQL.Host == "" || d.MySQL.Database == "" {
			return []string{"datastore.mysql.host and datastore.mysql.database are required for the mysql datastore"}
		}
	case DatastoreMemory:
	default:
		return []string{fmt.Sprintf("datastore.type %q must be sqlite, mysql or memory", d.Type)}
	}
	return nil
}

func validateWebServerSettings(w *WebServerSettings) []string {
	var errs []string
	if w.Listen == "" {
		errs = append(errs, "webserver.listen is required")
	}
	if w.MaxUploadSize <= 0 {
		errs = append(errs, "webserver.maxuploadsize must be positive")
	}
	return errs
}

func validateNotificationSettings(n *NotificationSettings) []string {
	if !n.Enabled {
		return nil
	}
	var errs []string
	if len(n.URLs) == 0 {
		errs = append(errs, "notification.urls requires at least one URL when notifications are enabled")
	}
	if n.QueueSize < 1 {
		errs = append(errs, "notification.queuesize must be at least 1")
	}
	if n.RateLimit.Interval < 0 || n.RateLimit.Burst < 0 {
		errs = append(errs, "notification.ratelimit values must not be negative")
	}
	return errs
}

func validateMQTTSettings(m *MQTTSettings) []string {
	if !m.Enabled {
		return nil
	}
	var errs []string
	if m.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	} else if u, err := url.Parse(m.Broker); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("mqtt.broker %q must be a URL such as tcp://host:1883", logger.RedactURL(m.Broker)))
	}
	if m.Topic == "" {
		errs = append(errs, "mqtt.topic is required when mqtt is enabled")
	}
	return errs
}
