// Package classifier defines the image classifier collaborator and a
// decorator that substitutes a placeholder prediction when it fails.
package classifier

import (
	"context"
	"time"

	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

// FallbackConfidence is the confidence of the placeholder prediction.
const FallbackConfidence = 0.05

// ErrUnavailable is returned by Unavailable.
var ErrUnavailable = errors.NewStd("no classifier configured")

// Classifier produces ranked predictions for an encoded image.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (detection.PredictionSet, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, image []byte) (detection.PredictionSet, error)

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, image []byte) (detection.PredictionSet, error) {
	return f(ctx, image)
}

// Unavailable always fails; it stands in when no classifier is configured.
type Unavailable struct{}

// Classify implements Classifier.
func (Unavailable) Classify(context.Context, []byte) (detection.PredictionSet, error) {
	return nil, ErrUnavailable
}

// Placeholder returns the single low-confidence Unknown prediction.
func Placeholder() detection.PredictionSet {
	return detection.PredictionSet{{Label: detection.UnknownLabel, Confidence: FallbackConfidence}}
}

// FallbackFunc is called each time the placeholder replaces a result.
type FallbackFunc func(cause error)

// Fallback wraps a classifier and never fails because of it.
type Fallback struct {
	next       Classifier
	timeout    time.Duration
	onFallback FallbackFunc
	log        logger.Logger
}

// Option customizes a Fallback.
type Option func(*Fallback)

// WithTimeout bounds each classification. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Fallback) { f.timeout = d }
}

// WithFallbackHook registers a callback, typically a metrics counter.
func WithFallbackHook(fn FallbackFunc) Option {
	return func(f *Fallback) { f.onFallback = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fallback) { f.log = l }
}

// WithFallback returns a classifier that yields Placeholder whenever next
// fails, times out, or returns an empty or malformed set. A nil next behaves
// like Unavailable.
func WithFallback(next Classifier, opts ...Option) *Fallback {
	if next == nil {
		next = Unavailable{}
	}
	f := &Fallback{next: next, log: logger.Global().Module("classifier")}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Classify implements Classifier. The error is non-nil only when ctx itself
// is done, since a cancelled request has no use for a placeholder.
func (f *Fallback) Classify(ctx context.Context, image []byte) (detection.PredictionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cctx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	preds, err := f.next.Classify(cctx, image)
	if err == nil {
		err = preds.Validate()
	}
	if err == nil {
		return preds, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cause := errors.New(err).
		Component("classifier").
		Category(errors.CategoryClassifier).
		Build()
	f.log.Warn("Classifier failed, using placeholder prediction",
		logger.Error(cause),
		logger.Bool("timeout", cctx.Err() != nil))
	if f.onFallback != nil {
		f.onFallback(cause)
	}
	return Placeholder(), nil
}
