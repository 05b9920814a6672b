// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets default values for the configuration.
// Map-valued tables (thresholds, aliases, activity profiles) are defined in
// the embedded config.yaml only, so that a user file replaces them wholesale.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "logs/trapwatch.log")
	v.SetDefault("logging.file.maxsize", 100)
	v.SetDefault("logging.file.maxage", 30)
	v.SetDefault("logging.file.maxbackups", 10)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("pipeline.quality.blurthreshold", 100.0)
	v.SetDefault("pipeline.quality.darkthreshold", 20.0)
	v.SetDefault("pipeline.quality.brightthreshold", 240.0)
	v.SetDefault("pipeline.quality.lowcontrastthreshold", 10.0)
	v.SetDefault("pipeline.quality.goodscore", 0.7)
	v.SetDefault("pipeline.quality.minscore", 0.3)
	v.SetDefault("pipeline.quality.penalty", 0.85)
	v.SetDefault("pipeline.quality.maxdimension", 1024)
	v.SetDefault("pipeline.quality.maxpixels", 40000000)

	v.SetDefault("pipeline.duplicate.window", 2*time.Minute)
	v.SetDefault("pipeline.duplicate.similarity", 0.95)
	v.SetDefault("pipeline.duplicate.penalty", 0.5)
	v.SetDefault("pipeline.duplicate.burstcount", 3)
	v.SetDefault("pipeline.duplicate.burstpenalty", 0.9)

	v.SetDefault("pipeline.ensemble.neartiegap", 0.15)
	v.SetDefault("pipeline.ensemble.wellseparatedgap", 0.2)
	v.SetDefault("pipeline.ensemble.wellseparatedmintop", 0.7)

	v.SetDefault("pipeline.temporal.window", time.Hour)
	v.SetDefault("pipeline.temporal.minrecent", 3)
	v.SetDefault("pipeline.temporal.maxboost", 0.10)

	v.SetDefault("pipeline.species.defaultthreshold", 0.2)
	v.SetDefault("pipeline.species.unknownminconfidence", 0.3)

	v.SetDefault("pipeline.activity.mode", ActivityModeHours)
	v.SetDefault("pipeline.activity.latitude", 0.0)
	v.SetDefault("pipeline.activity.longitude", 0.0)

	v.SetDefault("pipeline.tiers.highconfidence", 0.7)
	v.SetDefault("pipeline.tiers.highgap", 0.2)
	v.SetDefault("pipeline.tiers.mediumconfidence", 0.5)
	v.SetDefault("pipeline.tiers.notifythreshold", 0.7)

	v.SetDefault("classifier.timeout", 10*time.Second)

	v.SetDefault("datastore.type", DatastoreSQLite)
	v.SetDefault("datastore.sqlite.path", "trapwatch.db")
	v.SetDefault("datastore.mysql.host", "localhost")
	v.SetDefault("datastore.mysql.port", 3306)
	v.SetDefault("datastore.mysql.username", "")
	v.SetDefault("datastore.mysql.password", "")
	v.SetDefault("datastore.mysql.database", "trapwatch")
	v.SetDefault("datastore.slowquerythreshold", 200*time.Millisecond)

	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.maxuploadsize", 20<<20)
	v.SetDefault("webserver.serializepercamera", true)
	v.SetDefault("webserver.readtimeout", 30*time.Second)
	v.SetDefault("webserver.shutdowntimeout", 10*time.Second)

	v.SetDefault("images.save", true)
	v.SetDefault("images.path", "images")

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.queuesize", 100)
	v.SetDefault("notification.timeout", 10*time.Second)
	v.SetDefault("notification.ratelimit.interval", 5*time.Minute)
	v.SetDefault("notification.ratelimit.burst", 1)
	v.SetDefault("notification.titletemplate", "{{.Species}} on camera {{.CameraID}}")
	v.SetDefault("notification.messagetemplate", "{{.Species}} detected with {{.ConfidencePercent}}% confidence ({{.Quality}} quality) at {{.Time}}")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "trapwatch/detections")
	v.SetDefault("mqtt.clientid", "trapwatch")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.samplerate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
