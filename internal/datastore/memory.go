package datastore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/observability/metrics"
)

// DefaultMemoryTTL keeps detections for the longest history window the
// decision pipeline reads by default.
const DefaultMemoryTTL = time.Hour

// MemoryStore implements Interface on an expiring in-process cache.
// Detections older than the TTL, measured from when they were saved, disappear.
type MemoryStore struct {
	mu    sync.RWMutex
	cache *cache.Cache
	opt   options
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{opt: buildOptions(opts)}
}

// Open allocates the cache.
func (m *MemoryStore) Open() error {
	ttl := m.opt.memoryTTL
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// no janitor goroutine; Save evicts expired items and reads skip them
	m.cache = cache.New(ttl, 0)
	return nil
}

// Close drops all detections.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = nil
	return nil
}

// Save stores a copy of det.
func (m *MemoryStore) Save(ctx context.Context, det *Detection) (err error) {
	defer m.record(metrics.OpSave, time.Now(), &err)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cache == nil {
		return errClosed()
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if m.opt.readOnly {
		return errReadOnly()
	}
	if det.ID == "" {
		det.ID = uuid.NewString()
	}
	det.Timestamp = det.Timestamp.UTC()
	if det.CreatedAt.IsZero() {
		det.CreatedAt = time.Now()
	}
	m.cache.DeleteExpired()
	m.cache.SetDefault(det.ID, clone(det))
	return nil
}

// RecentDetections returns a camera's detections at or after since, oldest first.
func (m *MemoryStore) RecentDetections(ctx context.Context, cameraID string, since time.Time) (_ []detection.HistoryRecord, err error) {
	defer m.record(metrics.OpRecent, time.Now(), &err)

	rows, err := m.filter(ctx, func(d *Detection) bool {
		return d.CameraID == cameraID && !d.Timestamp.Before(since)
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(rows, func(a, b Detection) int { return a.Timestamp.Compare(b.Timestamp) })

	records := make([]detection.HistoryRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].HistoryRecord())
	}
	return records, nil
}

// Get returns a copy of one detection.
func (m *MemoryStore) Get(ctx context.Context, id string) (_ *Detection, err error) {
	defer m.record(metrics.OpGet, time.Now(), &err)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cache == nil {
		return nil, errClosed()
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, errors.New(ErrNotFound).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("id", id).
			Build()
	}
	return clone(v.(*Detection)), nil
}

// Latest lists detections newest first.
func (m *MemoryStore) Latest(ctx context.Context, cameraID string, limit int) (_ []Detection, err error) {
	defer m.record(metrics.OpLatest, time.Now(), &err)

	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	rows, err := m.filter(ctx, func(d *Detection) bool {
		return cameraID == "" || d.CameraID == cameraID
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(rows, func(a, b Detection) int {
		return cmp.Or(b.Timestamp.Compare(a.Timestamp), cmp.Compare(a.ID, b.ID))
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *MemoryStore) filter(ctx context.Context, keep func(*Detection) bool) ([]Detection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cache == nil {
		return nil, errClosed()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Detection
	for _, item := range m.cache.Items() {
		d := item.Object.(*Detection)
		if keep(d) {
			out = append(out, *clone(d))
		}
	}
	return out, nil
}

func (m *MemoryStore) record(op string, start time.Time, err *error) {
	m.opt.recorder.RecordDuration(op, time.Since(start).Seconds())
	if *err != nil && !errors.IsNotFound(*err) {
		m.opt.recorder.RecordOperation(op, metrics.StatusError)
		m.opt.recorder.RecordError(op, string(errors.CategoryDatabase))
		return
	}
	m.opt.recorder.RecordOperation(op, metrics.StatusSuccess)
}

func clone(d *Detection) *Detection {
	c := *d
	c.Predictions = slices.Clone(d.Predictions)
	for i := range c.Predictions {
		c.Predictions[i].DetectionID = d.ID
	}
	return &c
}

func errClosed() error {
	return errors.Newf("memory store is not open").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
}
