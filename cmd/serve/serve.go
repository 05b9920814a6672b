// Package serve implements the command running the ingestion server.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/trapwatch/internal/classifier"
	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/datastore"
	"github.com/tphakala/trapwatch/internal/ingest"
	"github.com/tphakala/trapwatch/internal/logger"
	"github.com/tphakala/trapwatch/internal/mqtt"
	"github.com/tphakala/trapwatch/internal/notification"
	"github.com/tphakala/trapwatch/internal/observability"
	"github.com/tphakala/trapwatch/internal/pipeline"
	"github.com/tphakala/trapwatch/internal/telemetry"
)

const sentryFlushTimeout = 2 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings, version string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the camera event ingestion server",
		Long:  "Accept camera trap events over HTTP, decide whether to keep them and forward notable detections.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				settings.WebServer.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings, version)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides webserver.listen")
	return cmd
}

// Run wires every component from settings and serves until ctx is done.
func Run(ctx context.Context, settings *conf.Settings, version string) error {
	log := logger.Global().Module("serve")

	if err := telemetry.InitSentry(&settings.Sentry, version); err != nil {
		log.Warn("Error telemetry disabled", logger.Error(err))
	}
	defer telemetry.Flush(sentryFlushTimeout)

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	store, err := datastore.New(&settings.Datastore, datastore.WithRecorder(m.Datastore))
	if err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close datastore", logger.Error(err))
		}
	}()

	engineOpts := []pipeline.Option{pipeline.WithRecorder(m.Pipeline)}
	var images *ingest.ImageStore
	if settings.Images.Save {
		images = ingest.NewImageStore(settings.Images.Path)
		engineOpts = append(engineOpts, pipeline.WithImageLoader(images))
	}
	engine, err := pipeline.NewFromSettings(settings, store, engineOpts...)
	if err != nil {
		return err
	}

	// no model is bundled, events without predictions get the placeholder
	cls := classifier.WithFallback(classifier.Unavailable{},
		classifier.WithTimeout(settings.Classifier.Timeout),
		classifier.WithFallbackHook(func(error) { m.HTTP.RecordClassifierFallback() }))

	dispatcher, err := notification.NewFromSettings(&settings.Notification, notification.WithRecorder(m.Notification))
	if err != nil {
		return err
	}
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	publisher, err := mqtt.NewFromSettings(ctx, &settings.MQTT, m.MQTT)
	if err != nil {
		return err
	}
	defer publisher.Close()

	opts := []ingest.Option{
		ingest.WithClassifier(cls),
		ingest.WithRecorder(m.HTTP),
	}
	if images != nil {
		opts = append(opts, ingest.WithImageStore(images))
	}
	if dispatcher != nil {
		opts = append(opts, ingest.WithNotifier(dispatcher))
	}
	if publisher != nil {
		opts = append(opts, ingest.WithPublisher(publisher))
	}
	if settings.Metrics.Enabled {
		opts = append(opts, ingest.WithMetricsHandler(settings.Metrics.Path, m.Handler()))
	}

	log.Info("Starting trapwatch",
		logger.String("version", version),
		logger.String("datastore", settings.Datastore.Type),
		logger.Bool("notifications", dispatcher != nil),
		logger.Bool("mqtt", publisher != nil))

	return ingest.New(settings.WebServer, engine, store, opts...).Run(ctx)
}
