package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

// Reasons a notification is dropped before delivery.
const (
	DropQueueFull   = "queue_full"
	DropRateLimited = "rate_limited"
	DropStopped     = "stopped"
	DropRender      = "render_failed"
)

const (
	defaultQueueSize   = 100
	defaultSendTimeout = 10 * time.Second
)

// Recorder receives dispatch observations. metrics.NotificationMetrics
// implements it.
type Recorder interface {
	RecordSent(provider string)
	RecordFailure(provider string)
	RecordDropped(reason string)
	SetQueueDepth(n int)
}

type noopRecorder struct{}

func (noopRecorder) RecordSent(string)    {}
func (noopRecorder) RecordFailure(string) {}
func (noopRecorder) RecordDropped(string) {}
func (noopRecorder) SetQueueDepth(int)    {}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithClock replaces time.Now for rate limiting.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher queues notifications and delivers them from one worker.
type Dispatcher struct {
	providers []Provider
	renderer  *Renderer
	queue     chan *Notification
	timeout   time.Duration
	limit     rate.Limit
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	recorder Recorder
	log      logger.Logger
	now      func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher for providers. A zero rate limit
// interval disables rate limiting.
func NewDispatcher(settings *conf.NotificationSettings, providers []Provider, opts ...Option) (*Dispatcher, error) {
	renderer, err := NewRenderer(settings.TitleTemplate, settings.MessageTemplate)
	if err != nil {
		return nil, err
	}

	queueSize := settings.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	limit := rate.Inf
	if settings.RateLimit.Interval > 0 {
		limit = rate.Every(settings.RateLimit.Interval)
	}

	d := &Dispatcher{
		providers: providers,
		renderer:  renderer,
		queue:     make(chan *Notification, queueSize),
		timeout:   timeout,
		limit:     limit,
		burst:     max(settings.RateLimit.Burst, 1),
		limiters:  make(map[string]*rate.Limiter),
		recorder:  noopRecorder{},
		log:       GetLogger(),
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewFromSettings creates a dispatcher delivering through shoutrrr. It
// returns nil when notifications are disabled.
func NewFromSettings(settings *conf.NotificationSettings, opts ...Option) (*Dispatcher, error) {
	if !settings.Enabled {
		return nil, nil
	}
	provider, err := NewShoutrrrProvider(settings.URLs, settings.Timeout)
	if err != nil {
		return nil, err
	}
	return NewDispatcher(settings, []Provider{provider}, opts...)
}

// Start launches the worker. It stops when ctx is done or Stop is called.
// Methods of a nil Dispatcher do nothing.
func (d *Dispatcher) Start(ctx context.Context) {
	if d == nil {
		return
	}
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run(ctx)
	})
}

// Stop delivers what is already queued and waits for the worker to exit.
// Enqueue drops notifications after Stop.
func (d *Dispatcher) Stop() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}

// Enqueue renders a notification for a decision and queues it without
// blocking. It reports whether the notification was queued.
func (d *Dispatcher) Enqueue(cameraID string, ts time.Time, dec *detection.Decision) bool {
	if d == nil {
		return false
	}
	select {
	case <-d.done:
		d.drop(cameraID, DropStopped)
		return false
	default:
	}

	if !d.limiter(cameraID).AllowN(d.now(), 1) {
		d.drop(cameraID, DropRateLimited)
		return false
	}

	title, message, err := d.renderer.Render(NewTemplateData(cameraID, ts, dec))
	if err != nil {
		d.log.Warn("Failed to render notification", logger.String("camera_id", cameraID), logger.Error(err))
		d.drop(cameraID, DropRender)
		return false
	}

	n := &Notification{
		ID:        uuid.NewString(),
		CameraID:  cameraID,
		Species:   dec.Species,
		Title:     title,
		Message:   message,
		Timestamp: ts,
	}
	select {
	case d.queue <- n:
		d.recorder.SetQueueDepth(len(d.queue))
		return true
	default:
		d.drop(cameraID, DropQueueFull)
		return false
	}
}

func (d *Dispatcher) limiter(cameraID string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[cameraID]
	if !ok {
		l = rate.NewLimiter(d.limit, d.burst)
		d.limiters[cameraID] = l
	}
	return l
}

func (d *Dispatcher) drop(cameraID, reason string) {
	d.recorder.RecordDropped(reason)
	d.log.Debug("Notification dropped", logger.String("camera_id", cameraID), logger.String("reason", reason))
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			d.drain(ctx)
			return
		case n := <-d.queue:
			d.recorder.SetQueueDepth(len(d.queue))
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			d.recorder.SetQueueDepth(0)
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *Notification) {
	for _, p := range d.providers {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := p.Send(sendCtx, n)
		cancel()
		if err != nil {
			d.recorder.RecordFailure(p.Name())
			enhanced := errors.New(err).
				Component("notification").
				Category(errors.CategoryNotification).
				Context("provider", p.Name()).
				Context("camera_id", n.CameraID).
				Build()
			d.log.Warn("Failed to deliver notification",
				logger.String("provider", p.Name()),
				logger.String("notification_id", n.ID),
				logger.Error(enhanced))
			continue
		}
		d.recorder.RecordSent(p.Name())
		d.log.Debug("Notification delivered",
			logger.String("provider", p.Name()),
			logger.String("notification_id", n.ID),
			logger.String("camera_id", n.CameraID))
	}
}
