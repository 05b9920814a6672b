// Package ingest implements the camera webhook: an uploaded image is
// classified, evaluated by the decision pipeline, persisted when worth saving
// and forwarded to notification and MQTT consumers.
package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/trapwatch/internal/classifier"
	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/datastore"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
	"github.com/tphakala/trapwatch/internal/mqtt"
	"github.com/tphakala/trapwatch/internal/pipeline"
)

// Evaluator produces decisions; *pipeline.Engine implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, ev pipeline.Event) (*detection.Decision, error)
}

// Store persists and queries detections; datastore.Interface implements it.
type Store interface {
	Save(ctx context.Context, det *datastore.Detection) error
	Get(ctx context.Context, id string) (*datastore.Detection, error)
	Latest(ctx context.Context, cameraID string, limit int) ([]datastore.Detection, error)
}

// Notifier queues push notifications; *notification.Dispatcher implements it.
type Notifier interface {
	Enqueue(cameraID string, ts time.Time, d *detection.Decision) bool
}

// Publisher forwards saved detections; *mqtt.Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, dto mqtt.DetectionDTO) error
}

// Recorder receives request observations; metrics.HTTPMetrics implements it.
type Recorder interface {
	RecordRequest(method, route string, status int, elapsed time.Duration)
	ObserveUploadSize(bytes int)
	RecordStoreError()
}

type noopRecorder struct{}

func (noopRecorder) RecordRequest(string, string, int, time.Duration) {}
func (noopRecorder) ObserveUploadSize(int)                            {}
func (noopRecorder) RecordStoreError()                                {}

// Controller holds the webhook dependencies and handlers.
type Controller struct {
	Echo *echo.Echo

	engine     Evaluator
	store      Store
	classifier classifier.Classifier
	images     *ImageStore
	notifier   Notifier
	publisher  Publisher
	recorder   Recorder
	log        logger.Logger

	settings conf.WebServerSettings
	locks    *cameraLocks

	metricsPath    string
	metricsHandler http.Handler
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClassifier sets the classifier used for events without predictions.
func WithClassifier(c classifier.Classifier) Option {
	return func(ctrl *Controller) { ctrl.classifier = c }
}

// WithImageStore saves images of stored detections.
func WithImageStore(s *ImageStore) Option {
	return func(ctrl *Controller) { ctrl.images = s }
}

// WithNotifier enqueues notifications for notable detections.
func WithNotifier(n Notifier) Option {
	return func(ctrl *Controller) { ctrl.notifier = n }
}

// WithPublisher publishes notable detections.
func WithPublisher(p Publisher) Option {
	return func(ctrl *Controller) { ctrl.publisher = p }
}

// WithRecorder sets the request metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(ctrl *Controller) { ctrl.recorder = r }
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(ctrl *Controller) { ctrl.log = l }
}

// WithMetricsHandler serves h at path.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(ctrl *Controller) {
		ctrl.metricsPath = path
		ctrl.metricsHandler = h
	}
}

// New creates the controller and registers its routes on a new echo
// instance.
func New(settings conf.WebServerSettings, engine Evaluator, store Store, opts ...Option) *Controller {
	c := &Controller{
		Echo:       echo.New(),
		engine:     engine,
		store:      store,
		classifier: classifier.WithFallback(classifier.Unavailable{}),
		recorder:   noopRecorder{},
		log:        GetLogger(),
		settings:   settings,
		locks:      newCameraLocks(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Echo.HideBanner = true
	c.Echo.HidePort = true
	c.Echo.Use(middleware.Recover())
	c.Echo.Use(c.requestMetrics)
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/healthz", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "ok")
	})
	if c.metricsHandler != nil {
		c.Echo.GET(c.metricsPath, echo.WrapHandler(c.metricsHandler))
	}

	api := c.Echo.Group("/api/v1")
	api.POST("/cameras/:camera/events", c.PostEvent)
	api.GET("/cameras/:camera/detections", c.ListDetections)
	api.GET("/detections/:id", c.GetDetection)
}

// requestMetrics records one observation per request using the route
// pattern rather than the raw path.
func (c *Controller) requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)

		status := ctx.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		route := ctx.Path()
		if route == "" {
			route = "unmatched"
		}
		c.recorder.RecordRequest(ctx.Request().Method, route, status, time.Since(start))
		return err
	}
}
