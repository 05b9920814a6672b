// Package notification delivers push notifications for notable detections.
//
// A Dispatcher renders each detection through the configured title and
// message templates, applies a per-camera rate limit and hands the result to
// its providers from a single worker goroutine.
package notification

import (
	"context"
	"time"
)

// Notification is one rendered push message.
type Notification struct {
	ID        string
	CameraID  string
	Species   string
	Title     string
	Message   string
	Timestamp time.Time
}

// Provider delivers notifications to one push service or group of services.
type Provider interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// ProviderFunc adapts a function to Provider, mostly for tests.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, n *Notification) error
}

// Name implements Provider.
func (p ProviderFunc) Name() string { return p.ProviderName }

// Send implements Provider.
func (p ProviderFunc) Send(ctx context.Context, n *Notification) error { return p.Fn(ctx, n) }
