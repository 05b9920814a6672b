package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/trapwatch/internal/datastore"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
	"github.com/tphakala/trapwatch/internal/mqtt"
	"github.com/tphakala/trapwatch/internal/pipeline"
)

// Multipart form fields of an event upload.
const (
	FormImage       = "image"
	FormTimestamp   = "timestamp"
	FormPredictions = "predictions"
)

var validCameraID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// stored is the outcome of persisting a decision.
type stored struct {
	id       string
	imageRef string
}

// PostEvent handles POST /api/v1/cameras/:camera/events.
func (c *Controller) PostEvent(ctx echo.Context) error {
	cameraID := ctx.Param("camera")
	if !validCameraID.MatchString(cameraID) {
		return c.HandleError(ctx, nil, "Invalid camera ID", http.StatusBadRequest)
	}

	req := ctx.Request()
	maxSize := c.settings.MaxUploadSize
	if maxSize > 0 {
		if req.ContentLength > maxSize {
			return c.HandleError(ctx, nil, "Upload exceeds the maximum size", http.StatusRequestEntityTooLarge)
		}
		req.Body = http.MaxBytesReader(ctx.Response(), req.Body, maxSize)
	}

	image, err := readImage(ctx)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return c.HandleError(ctx, err, "Upload exceeds the maximum size", http.StatusRequestEntityTooLarge)
		}
		return c.HandleError(ctx, err, "Missing or unreadable image", http.StatusBadRequest)
	}
	c.recorder.ObserveUploadSize(len(image))

	ts := time.Now()
	if raw := ctx.FormValue(FormTimestamp); raw != "" {
		ts, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.HandleError(ctx, err, "Timestamp must be RFC3339", http.StatusBadRequest)
		}
	}

	preds, err := c.predictions(req.Context(), ctx.FormValue(FormPredictions), image)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) || errors.IsCategory(err, errors.CategoryContract) {
			return c.HandleError(ctx, err, "Invalid predictions", http.StatusBadRequest)
		}
		return c.HandleError(ctx, err, "Classification failed", http.StatusServiceUnavailable)
	}

	ev := pipeline.Event{CameraID: cameraID, Timestamp: ts, Image: image, Predictions: preds}
	decision, result, err := c.evaluateAndStore(req.Context(), ev)
	if err != nil {
		switch {
		case errors.IsCategory(err, errors.CategoryContract):
			return c.HandleError(ctx, err, "Invalid predictions", http.StatusBadRequest)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return c.HandleError(ctx, err, "Request cancelled", http.StatusServiceUnavailable)
		default:
			return c.HandleError(ctx, err, "Failed to store detection", http.StatusInternalServerError)
		}
	}

	c.logSummary(cameraID, decision, result)
	if decision.ShouldNotify {
		c.forward(req.Context(), ev, decision, result)
	}

	if result.id != "" {
		return ctx.JSON(http.StatusCreated, EventResponse{ID: result.id, ImageRef: result.imageRef, Decision: decision})
	}
	return ctx.JSON(http.StatusOK, EventResponse{Decision: decision})
}

func readImage(ctx echo.Context) ([]byte, error) {
	fh, err := ctx.FormFile(FormImage)
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.ValidationError("image is empty")
	}
	return data, nil
}

// predictions parses the optional JSON predictions field or classifies the
// image when it is absent.
func (c *Controller) predictions(ctx context.Context, raw string, image []byte) (detection.PredictionSet, error) {
	if raw == "" {
		return c.classifier.Classify(ctx, image)
	}

	var preds detection.PredictionSet
	if err := json.Unmarshal([]byte(raw), &preds); err != nil {
		return nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := preds.Validate(); err != nil {
		return nil, err
	}
	return preds, nil
}

// evaluateAndStore runs the pipeline and persists a decision worth saving.
// With per-camera serialization the next event of the camera is evaluated
// only after this one is stored.
func (c *Controller) evaluateAndStore(ctx context.Context, ev pipeline.Event) (*detection.Decision, stored, error) {
	if c.settings.SerializePerCamera {
		unlock := c.locks.lock(ev.CameraID)
		defer unlock()
	}

	decision, err := c.engine.Evaluate(ctx, ev)
	if err != nil {
		return nil, stored{}, err
	}
	if !decision.ShouldSave {
		return decision, stored{}, nil
	}

	var result stored
	if c.images != nil {
		result.imageRef, err = c.images.Save(ev.CameraID, ev.Timestamp, decision.Species, decision.Confidence, ev.Image)
		if err != nil {
			c.recorder.RecordStoreError()
			return nil, stored{}, err
		}
	}

	det := datastore.NewDetection(ev.CameraID, ev.Timestamp, result.imageRef, decision)
	if err := c.store.Save(ctx, det); err != nil {
		c.recorder.RecordStoreError()
		if result.imageRef != "" {
			if rmErr := c.images.Remove(result.imageRef); rmErr != nil {
				c.log.Warn("Failed to remove orphaned image", logger.String("image_ref", result.imageRef), logger.Error(rmErr))
			}
		}
		return nil, stored{}, err
	}
	result.id = det.ID
	return decision, result, nil
}

// logSummary writes the one line decision summary of an event.
func (c *Controller) logSummary(cameraID string, d *detection.Decision, result stored) {
	c.log.Info("Decision made",
		logger.String("camera_id", cameraID),
		logger.String("species", d.Species),
		logger.Float64("confidence", d.Confidence),
		logger.String("quality", string(d.Quality)),
		logger.Bool("should_save", d.ShouldSave),
		logger.Bool("should_notify", d.ShouldNotify),
		logger.Strings("reasons", d.Reasons),
		logger.String("detection_id", result.id))
}

// forward hands a notable detection to the notifier and MQTT publisher.
// Neither can fail the request.
func (c *Controller) forward(ctx context.Context, ev pipeline.Event, d *detection.Decision, result stored) {
	if c.notifier != nil {
		c.notifier.Enqueue(ev.CameraID, ev.Timestamp, d)
	}
	if c.publisher != nil {
		// errors are logged by the publisher
		_ = c.publisher.Publish(ctx, mqtt.NewDetectionDTO(result.id, ev.CameraID, ev.Timestamp, result.imageRef, d))
	}
}
