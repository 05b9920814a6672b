// Package evaluate implements the command evaluating a single event offline.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/trapwatch/internal/classifier"
	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/datastore"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
	"github.com/tphakala/trapwatch/internal/pipeline"
)

// Output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

type options struct {
	camera      string
	timestamp   string
	imagePath   string
	predictions []string
	output      string
	noHistory   bool
}

// Command creates the evaluate command. It opens the configured datastore
// read-only for detection history and never writes to it.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "evaluate [image]",
		Short: "Print the decision for one event without storing it",
		Long: "Evaluate an image and its predictions the way the server would and print the decision. " +
			"Predictions are given as label:confidence, e.g. --prediction Deer:0.82 --prediction Fox:0.1.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.imagePath = args[0]
			}
			return run(cmd, settings, opts)
		},
	}

	cmd.Flags().StringVar(&opts.camera, "camera", "", "Camera ID of the event")
	cmd.Flags().StringVar(&opts.timestamp, "time", "", "Capture time in RFC3339 (default: now)")
	cmd.Flags().StringArrayVarP(&opts.predictions, "prediction", "p", nil, "Prediction as label:confidence, repeatable")
	cmd.Flags().StringVarP(&opts.output, "output", "o", OutputJSON, "Output format: json or yaml")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not read recent detections from the datastore")
	_ = cmd.MarkFlagRequired("camera")

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, opts *options) error {
	ctx := cmd.Context()

	if opts.output != OutputJSON && opts.output != OutputYAML {
		return errors.ValidationError(fmt.Sprintf("unsupported output format %q", opts.output))
	}

	ts := time.Now()
	if opts.timestamp != "" {
		var err error
		if ts, err = time.Parse(time.RFC3339, opts.timestamp); err != nil {
			return errors.New(err).
				Component("evaluate").
				Category(errors.CategoryValidation).
				Context("time", opts.timestamp).
				Build()
		}
	}

	var image []byte
	if opts.imagePath != "" {
		data, err := os.ReadFile(opts.imagePath)
		if err != nil {
			return errors.New(err).
				Component("evaluate").
				Category(errors.CategoryFileIO).
				Context("path", opts.imagePath).
				Build()
		}
		image = data
	}

	preds := make(detection.PredictionSet, 0, len(opts.predictions))
	for _, raw := range opts.predictions {
		p, err := detection.ParsePrediction(raw)
		if err != nil {
			return err
		}
		preds = append(preds, p)
	}
	if len(preds) == 0 {
		cls := classifier.WithFallback(classifier.Unavailable{}, classifier.WithTimeout(settings.Classifier.Timeout))
		var err error
		if preds, err = cls.Classify(ctx, image); err != nil {
			return err
		}
	}

	var history pipeline.HistoryLookup
	if !opts.noHistory {
		store, err := datastore.New(&settings.Datastore, datastore.WithReadOnly())
		if err != nil {
			return err
		}
		if err := store.Open(); err != nil {
			// e.g. no database file yet; the decision carries the no_history reason
			logger.Global().Module("evaluate").Warn("Datastore unavailable, evaluating without history",
				logger.String("type", settings.Datastore.Type),
				logger.Error(err))
			history = pipeline.HistoryLookupFunc(func(context.Context, string, time.Time) ([]detection.HistoryRecord, error) {
				return nil, err
			})
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					logger.Global().Module("evaluate").Warn("Failed to close datastore", logger.Error(err))
				}
			}()
			history = store
		}
	}

	engine, err := pipeline.NewFromSettings(settings, history)
	if err != nil {
		return err
	}
	decision, err := engine.Evaluate(ctx, pipeline.Event{
		CameraID:    opts.camera,
		Timestamp:   ts,
		Image:       image,
		Predictions: preds,
	})
	if err != nil {
		return err
	}

	return write(cmd, opts.output, decision)
}

func write(cmd *cobra.Command, format string, d *detection.Decision) error {
	out := cmd.OutOrStdout()
	if format == OutputYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
