// interfaces.go defines the interface for the database operations
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
	"github.com/tphakala/trapwatch/internal/observability/metrics"
)

// DefaultLatestLimit is used when Latest is called with a non-positive limit.
const DefaultLatestLimit = 50

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.NewStd("detection not found")

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error
	// Save assigns an ID when empty and stores the detection with its predictions.
	Save(ctx context.Context, det *Detection) error
	// RecentDetections returns the detections of a camera at or after since,
	// oldest first.
	RecentDetections(ctx context.Context, cameraID string, since time.Time) ([]detection.HistoryRecord, error)
	Get(ctx context.Context, id string) (*Detection, error)
	// Latest returns up to limit detections of a camera, newest first. An
	// empty cameraID lists all cameras.
	Latest(ctx context.Context, cameraID string, limit int) ([]Detection, error)
}

// Option customizes a store.
type Option func(*options)

type options struct {
	recorder      metrics.Recorder
	log           logger.Logger
	slowThreshold time.Duration
	memoryTTL     time.Duration
	readOnly      bool
}

// WithRecorder records operation counts and durations.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithSlowQueryThreshold logs statements slower than d at WARN.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *options) { o.slowThreshold = d }
}

// WithMemoryTTL sets how long the memory backend keeps detections.
func WithMemoryTTL(d time.Duration) Option {
	return func(o *options) { o.memoryTTL = d }
}

// WithReadOnly opens the store for lookups only. The schema is not migrated,
// a missing SQLite file is not created and Save fails.
func WithReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

func buildOptions(opts []Option) options {
	o := options{recorder: metrics.NoOpRecorder{}, log: GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the store selected by the settings. The store must be opened
// before use.
func New(settings *conf.DatastoreSettings, opts ...Option) (Interface, error) {
	opts = append([]Option{WithSlowQueryThreshold(settings.SlowQueryThreshold)}, opts...)
	switch settings.Type {
	case conf.DatastoreSQLite, "":
		return NewSQLiteStore(settings.SQLite.Path, opts...), nil
	case conf.DatastoreMySQL:
		return NewMySQLStore(settings.MySQL, opts...), nil
	case conf.DatastoreMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, errors.New(fmt.Errorf("unsupported datastore type %q", settings.Type)).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// DataStore implements the queries shared by the GORM backends.
type DataStore struct {
	DB  *gorm.DB // GORM database instance
	opt options
}

// Save stores a detection and its predictions in one transaction.
func (ds *DataStore) Save(ctx context.Context, det *Detection) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if ds.opt.readOnly {
		return errReadOnly()
	}
	if det.ID == "" {
		det.ID = uuid.NewString()
	}
	det.Timestamp = det.Timestamp.UTC()

	err := ds.observe(metrics.OpSave, func() error {
		return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(det).Error
		})
	})
	if err != nil {
		return ds.wrap(err, metrics.OpSave).Context("camera_id", det.CameraID).Build()
	}
	return nil
}

// RecentDetections implements the history lookup of the decision pipeline.
func (ds *DataStore) RecentDetections(ctx context.Context, cameraID string, since time.Time) ([]detection.HistoryRecord, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	var rows []Detection
	err := ds.observe(metrics.OpRecent, func() error {
		return ds.DB.WithContext(ctx).
			Where("camera_id = ? AND timestamp >= ?", cameraID, since.UTC()).
			Order("timestamp ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, ds.wrap(err, metrics.OpRecent).Context("camera_id", cameraID).Build()
	}

	records := make([]detection.HistoryRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].HistoryRecord())
	}
	return records, nil
}

// Get loads one detection with its predictions.
func (ds *DataStore) Get(ctx context.Context, id string) (*Detection, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	var det Detection
	err := ds.observe(metrics.OpGet, func() error {
		return ds.DB.WithContext(ctx).
			Preload("Predictions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			First(&det, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(ErrNotFound).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("id", id).
			Build()
	}
	if err != nil {
		return nil, ds.wrap(err, metrics.OpGet).Context("id", id).Build()
	}
	return &det, nil
}

// Latest lists stored detections newest first.
func (ds *DataStore) Latest(ctx context.Context, cameraID string, limit int) ([]Detection, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLatestLimit
	}

	var rows []Detection
	err := ds.observe(metrics.OpLatest, func() error {
		q := ds.DB.WithContext(ctx).
			Preload("Predictions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Order("timestamp DESC").
			Limit(limit)
		if cameraID != "" {
			q = q.Where("camera_id = ?", cameraID)
		}
		return q.Find(&rows).Error
	})
	if err != nil {
		return nil, ds.wrap(err, metrics.OpLatest).Context("camera_id", cameraID).Build()
	}
	return rows, nil
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// observe runs fn and records its outcome and duration.
func (ds *DataStore) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	ds.opt.recorder.RecordDuration(op, time.Since(start).Seconds())
	switch {
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
		ds.opt.recorder.RecordOperation(op, metrics.StatusSuccess)
	default:
		ds.opt.recorder.RecordOperation(op, metrics.StatusError)
		ds.opt.recorder.RecordError(op, string(errors.CategoryDatabase))
	}
	return err
}

func (ds *DataStore) wrap(err error, op string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", op)
}

// performAutoMigration creates or updates the schema. Read-only stores keep
// the schema as found.
func performAutoMigration(db *gorm.DB, opt options, dbType, connectionInfo string) error {
	log := opt.log
	if opt.readOnly {
		log.Debug("Database opened read-only, skipping migration",
			logger.String("type", dbType),
			logger.String("connection", connectionInfo))
		return nil
	}
	if err := db.AutoMigrate(&Detection{}, &Prediction{}); err != nil {
		return errors.New(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	log.Debug("Database connection initialized",
		logger.String("type", dbType),
		logger.String("connection", connectionInfo))
	return nil
}

func errReadOnly() error {
	return errors.Newf("datastore is read-only").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", metrics.OpSave).
		Build()
}

// closeDB closes the connection pool behind db.
func closeDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.New(err).Component("datastore").Category(errors.CategoryDatabase).Build()
	}
	if err := sqlDB.Close(); err != nil {
		return errors.New(err).Component("datastore").Category(errors.CategoryDatabase).Build()
	}
	return nil
}
