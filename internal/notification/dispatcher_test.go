package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}

type fakeRecorder struct {
	mu      sync.Mutex
	sent    map[string]int
	failed  map[string]int
	dropped map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{sent: map[string]int{}, failed: map[string]int{}, dropped: map[string]int{}}
}

func (r *fakeRecorder) RecordSent(p string)    { r.mu.Lock(); r.sent[p]++; r.mu.Unlock() }
func (r *fakeRecorder) RecordFailure(p string) { r.mu.Lock(); r.failed[p]++; r.mu.Unlock() }
func (r *fakeRecorder) RecordDropped(s string) { r.mu.Lock(); r.dropped[s]++; r.mu.Unlock() }
func (r *fakeRecorder) SetQueueDepth(int)      {}

func (r *fakeRecorder) count(m map[string]int, key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m[key]
}

// collector records delivered notifications.
type collector struct {
	mu   sync.Mutex
	got  []*Notification
	err  error
	name string
}

func (c *collector) Name() string { return c.name }

func (c *collector) Send(_ context.Context, n *Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
	return c.err
}

func (c *collector) delivered() []*Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Notification(nil), c.got...)
}

func testSettings() *conf.NotificationSettings {
	return &conf.NotificationSettings{
		Enabled:   true,
		QueueSize: 10,
		Timeout:   time.Second,
		RateLimit: conf.RateLimitSettings{Interval: time.Minute, Burst: 1},
	}
}

func deerDecision() *detection.Decision {
	return &detection.Decision{Species: "Deer", Confidence: 0.904, Quality: detection.QualityHigh}
}

var dawn = time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)

func TestDispatcherDeliversRenderedNotification(t *testing.T) {
	c := &collector{name: "test"}
	rec := newFakeRecorder()
	d, err := NewDispatcher(testSettings(), []Provider{c}, WithRecorder(rec), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	d.Start(t.Context())
	require.True(t, d.Enqueue("cam1", dawn, deerDecision()))

	require.Eventually(t, func() bool { return len(c.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	d.Stop()

	n := c.delivered()[0]
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "cam1", n.CameraID)
	assert.Equal(t, "Deer", n.Species)
	assert.Equal(t, "Deer on camera cam1", n.Title)
	assert.Equal(t, "Deer detected with 90% confidence (high quality) at 06:30:00", n.Message)
	assert.Equal(t, 1, rec.count(rec.sent, "test"))
}

func TestDispatcherRateLimitsPerCamera(t *testing.T) {
	now := dawn
	rec := newFakeRecorder()
	d, err := NewDispatcher(testSettings(), nil,
		WithRecorder(rec),
		WithLogger(logger.NewDiscardLogger()),
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	assert.True(t, d.Enqueue("cam1", dawn, deerDecision()))
	assert.False(t, d.Enqueue("cam1", dawn, deerDecision()), "second notification within the interval")
	assert.True(t, d.Enqueue("cam2", dawn, deerDecision()), "other cameras have their own bucket")

	now = now.Add(2 * time.Minute)
	assert.True(t, d.Enqueue("cam1", dawn, deerDecision()), "token refilled after the interval")
	assert.Equal(t, 1, rec.count(rec.dropped, DropRateLimited))
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	s := testSettings()
	s.QueueSize = 1
	s.RateLimit = conf.RateLimitSettings{}
	rec := newFakeRecorder()
	d, err := NewDispatcher(s, nil, WithRecorder(rec), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	assert.True(t, d.Enqueue("cam1", dawn, deerDecision()))
	assert.False(t, d.Enqueue("cam1", dawn, deerDecision()))
	assert.Equal(t, 1, rec.count(rec.dropped, DropQueueFull))
	assert.Zero(t, rec.count(rec.dropped, DropRateLimited))
}

func TestDispatcherStopDeliversQueued(t *testing.T) {
	s := testSettings()
	s.RateLimit = conf.RateLimitSettings{}
	c := &collector{name: "test"}
	rec := newFakeRecorder()
	d, err := NewDispatcher(s, []Provider{c}, WithRecorder(rec), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	for range 3 {
		require.True(t, d.Enqueue("cam1", dawn, deerDecision()))
	}
	d.Start(t.Context())
	d.Stop()

	assert.Len(t, c.delivered(), 3)
	assert.False(t, d.Enqueue("cam1", dawn, deerDecision()))
	assert.Equal(t, 1, rec.count(rec.dropped, DropStopped))

	// idempotent
	d.Stop()
}

func TestDispatcherProviderFailureDoesNotBlockOthers(t *testing.T) {
	failing := &collector{name: "failing", err: errors.NewStd("service unavailable")}
	ok := &collector{name: "ok"}
	rec := newFakeRecorder()
	d, err := NewDispatcher(testSettings(), []Provider{failing, ok}, WithRecorder(rec), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	d.Start(t.Context())
	require.True(t, d.Enqueue("cam1", dawn, deerDecision()))
	d.Stop()

	assert.Len(t, failing.delivered(), 1)
	assert.Len(t, ok.delivered(), 1)
	assert.Equal(t, 1, rec.count(rec.failed, "failing"))
	assert.Equal(t, 1, rec.count(rec.sent, "ok"))
}

func TestDispatcherCancelledContextStopsWorker(t *testing.T) {
	d, err := NewDispatcher(testSettings(), nil, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	d.Start(ctx)
	cancel()
	d.Stop()
}

func TestDispatcherRenderFailureDrops(t *testing.T) {
	s := testSettings()
	s.MessageTemplate = "{{.Nope}}"
	rec := newFakeRecorder()
	d, err := NewDispatcher(s, nil, WithRecorder(rec), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	assert.False(t, d.Enqueue("cam1", dawn, deerDecision()))
	assert.Equal(t, 1, rec.count(rec.dropped, DropRender))
}

func TestNewDispatcherRejectsBadTemplate(t *testing.T) {
	s := testSettings()
	s.TitleTemplate = "{{.Species"
	_, err := NewDispatcher(s, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestNilDispatcherIsInert(t *testing.T) {
	var d *Dispatcher
	d.Start(t.Context())
	assert.False(t, d.Enqueue("cam1", dawn, deerDecision()))
	d.Stop()
}

func TestNewFromSettings(t *testing.T) {
	d, err := NewFromSettings(&conf.NotificationSettings{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = NewFromSettings(&conf.NotificationSettings{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSanitizeRemovesTokens(t *testing.T) {
	err := sanitize(errors.NewStd(`Post "discord://s3cret@123": timeout`)).Build()
	assert.NotContains(t, err.Error(), "s3cret")
	assert.Contains(t, err.Error(), "discord://redacted@123")
}

func TestTemplateData(t *testing.T) {
	d := deerDecision()
	d.Reasons = []string{detection.ReasonBurst, detection.ReasonPoorQuality}
	data := NewTemplateData("cam9", dawn, d)
	assert.Equal(t, "90", data.ConfidencePercent)
	assert.Equal(t, "high", data.Quality)
	assert.Equal(t, "2024-05-01", data.Date)
	assert.Equal(t, detection.ReasonBurst+", "+detection.ReasonPoorQuality, data.Reasons)

	r, err := NewRenderer("{{.Date}} {{.CameraID}}", "{{.Reasons}}")
	require.NoError(t, err)
	title, msg, err := r.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 cam9", title)
	assert.Equal(t, data.Reasons, msg)
}
