package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/errors"
)

// mockTransport implements sentry.Transport for testing
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *mockTransport) Configure(sentry.ClientOptions) {} //nolint:gocritic // interface signature

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool              { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close()                                {}

func (t *mockTransport) captured() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func resetSentry(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		errors.SetTelemetryReporter(nil)
		sentry.CurrentHub().BindClient(nil)
	})
}

func TestInitSentryDisabled(t *testing.T) {
	resetSentry(t)
	require.NoError(t, InitSentry(&conf.SentrySettings{Enabled: false}, "dev"))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestInitSentryReportsBuiltErrors(t *testing.T) {
	resetSentry(t)
	transport := &mockTransport{}
	settings := &conf.SentrySettings{
		Enabled:     true,
		DSN:         "https://public@sentry.example.com/1",
		Environment: "test",
		SampleRate:  1,
	}
	require.NoError(t, InitSentry(settings, "1.2.3", WithTransport(transport)))
	require.NotNil(t, errors.GetTelemetryReporter())

	_ = errors.Newf("query failed for mysql://user:hunter2@db/tw").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()

	events := transport.captured()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "datastore", ev.Tags["component"])
	assert.Equal(t, string(errors.CategoryDatabase), ev.Tags["category"])
	assert.Equal(t, "trapwatch@1.2.3", ev.Release)
	assert.Empty(t, ev.ServerName)
	assert.NotContains(t, ev.Message, "hunter2")

	Flush(time.Second)
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestApplyPrivacyFilters(t *testing.T) {
	ev := sentry.NewEvent()
	ev.ServerName = "trap-host"
	ev.User = sentry.User{ID: "42"}
	ev.Tags = map[string]string{"hostname": "trap-host", "component": "ingest"}
	ev.Contexts = map[string]sentry.Context{"os": {"name": "linux"}, "app": {"v": 1}}

	out := applyPrivacyFilters(ev)
	assert.Empty(t, out.ServerName)
	assert.True(t, out.User.IsEmpty())
	assert.NotContains(t, out.Tags, "hostname")
	assert.Equal(t, "ingest", out.Tags["component"])
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "app")
}
