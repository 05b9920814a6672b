package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
	"github.com/tphakala/trapwatch/internal/observability/metrics"
)

var base = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func openStores(t *testing.T) map[string]Interface {
	t.Helper()
	stores := map[string]Interface{
		"sqlite": NewSQLiteStore(":memory:", WithLogger(logger.NewDiscardLogger())),
		"memory": NewMemoryStore(WithLogger(logger.NewDiscardLogger())),
	}
	for name, s := range stores {
		require.NoError(t, s.Open(), name)
		t.Cleanup(func() { _ = s.Close() })
	}
	return stores
}

func decision(species string, conf float64) *detection.Decision {
	return &detection.Decision{
		Species:        species,
		Confidence:     conf,
		Quality:        detection.QualityMedium,
		ShouldSave:     true,
		AllPredictions: detection.PredictionSet{{Label: species, Confidence: conf}, {Label: "Fox", Confidence: 0.1}},
		Fingerprint:    "p:8000000000000000",
		Reasons:        []string{detection.ReasonBurst},
	}
}

func TestSaveAndGet(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			local := time.FixedZone("EEST", 3*3600)
			det := NewDetection("cam-1", base.In(local), "cam-1/deer.jpg", decision("Deer", 0.8))

			require.NoError(t, store.Save(t.Context(), det))
			require.NotEmpty(t, det.ID)

			got, err := store.Get(t.Context(), det.ID)
			require.NoError(t, err)
			assert.Equal(t, "cam-1", got.CameraID)
			assert.Equal(t, "Deer", got.Species)
			assert.True(t, got.Timestamp.Equal(base))
			assert.Equal(t, []string{detection.ReasonBurst}, got.ReasonList())
			require.Len(t, got.Predictions, 2)
			assert.Equal(t, 1, got.Predictions[0].Position)
			assert.Equal(t, "Fox", got.Predictions[1].Label)
		})
	}
}

func TestGetUnknownID(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(t.Context(), "missing")
			require.Error(t, err)
			assert.True(t, errors.IsNotFound(err))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRecentDetections(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			for i, offset := range []time.Duration{-90 * time.Minute, -30 * time.Minute, -time.Minute, -2 * time.Hour} {
				det := NewDetection("cam-1", base.Add(offset), "", decision("Deer", 0.5+float64(i)/10))
				require.NoError(t, store.Save(ctx, det))
			}
			require.NoError(t, store.Save(ctx, NewDetection("cam-2", base, "", decision("Fox", 0.9))))

			records, err := store.RecentDetections(ctx, "cam-1", base.Add(-time.Hour))
			require.NoError(t, err)

			require.Len(t, records, 2)
			assert.True(t, records[0].Timestamp.Equal(base.Add(-30*time.Minute)))
			assert.True(t, records[1].Timestamp.Equal(base.Add(-time.Minute)))
			assert.Equal(t, "p:8000000000000000", records[0].Fingerprint)
			assert.Equal(t, "cam-1", records[1].CameraID)
		})
	}
}

func TestRecentDetectionsIncludesSince(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(t.Context(), NewDetection("cam", base, "", decision("Deer", 0.5))))

			records, err := store.RecentDetections(t.Context(), "cam", base)
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})
	}
}

func TestLatest(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			for i := range 5 {
				require.NoError(t, store.Save(ctx, NewDetection("cam-1", base.Add(time.Duration(i)*time.Minute), "", decision("Deer", 0.5))))
			}
			require.NoError(t, store.Save(ctx, NewDetection("cam-2", base.Add(time.Hour), "", decision("Fox", 0.5))))

			rows, err := store.Latest(ctx, "cam-1", 3)
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.True(t, rows[0].Timestamp.Equal(base.Add(4*time.Minute)))
			assert.True(t, rows[2].Timestamp.Equal(base.Add(2*time.Minute)))
			assert.Len(t, rows[0].Predictions, 2)

			all, err := store.Latest(ctx, "", 0)
			require.NoError(t, err)
			assert.Len(t, all, 6)
			assert.Equal(t, "cam-2", all[0].CameraID)
		})
	}
}

func TestClosedStoreFails(t *testing.T) {
	for name, store := range map[string]Interface{
		"sqlite": NewSQLiteStore(":memory:"),
		"memory": NewMemoryStore(),
	} {
		t.Run(name, func(t *testing.T) {
			err := store.Save(t.Context(), NewDetection("cam", base, "", decision("Deer", 0.5)))
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
		})
	}
}

func TestRecorderCountsOperations(t *testing.T) {
	rec := metrics.NewTestRecorder()
	store := NewSQLiteStore(":memory:", WithRecorder(rec), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Save(t.Context(), NewDetection("cam", base, "", decision("Deer", 0.5))))
	_, err := store.RecentDetections(t.Context(), "cam", base.Add(-time.Hour))
	require.NoError(t, err)
	_, err = store.Get(t.Context(), "missing")
	require.Error(t, err)

	assert.Equal(t, 1, rec.OperationCount(metrics.OpSave, metrics.StatusSuccess))
	assert.Equal(t, 1, rec.OperationCount(metrics.OpRecent, metrics.StatusSuccess))
	assert.Equal(t, 1, rec.OperationCount(metrics.OpGet, metrics.StatusSuccess))
	assert.Equal(t, 1, rec.DurationCount(metrics.OpSave))
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(&conf.DatastoreSettings{Type: conf.DatastoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(&conf.DatastoreSettings{Type: conf.DatastoreSQLite, SQLite: conf.SQLiteSettings{Path: "x.db"}})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	s, err = New(&conf.DatastoreSettings{Type: conf.DatastoreMySQL, MySQL: conf.MySQLSettings{Host: "db", Database: "tw", Username: "u", Password: "p"}})
	require.NoError(t, err)
	require.IsType(t, &MySQLStore{}, s)
	assert.Equal(t, "u:p@tcp(db:3306)/tw?charset=utf8mb4&parseTime=True&loc=UTC", s.(*MySQLStore).dsn())

	_, err = New(&conf.DatastoreSettings{Type: "postgres"})
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSQLiteFileIsCreated(t *testing.T) {
	path := t.TempDir() + "/nested/trapwatch.db"
	store := NewSQLiteStore(path, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, store.Open())
	require.NoError(t, store.Save(t.Context(), NewDetection("cam", base, "", decision("Deer", 0.5))))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(path, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, reopened.Open())
	t.Cleanup(func() { _ = reopened.Close() })

	rows, err := reopened.Latest(t.Context(), "cam", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryStoreEvictsExpiredOnSave(t *testing.T) {
	store := NewMemoryStore(WithMemoryTTL(50*time.Millisecond), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	for range 3 {
		require.NoError(t, store.Save(t.Context(), NewDetection("cam", base, "", decision("Deer", 0.5))))
	}
	assert.Equal(t, 3, store.cache.ItemCount())

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, store.Save(t.Context(), NewDetection("cam", base, "", decision("Fox", 0.5))))

	assert.Equal(t, 1, store.cache.ItemCount())
	rows, err := store.Latest(t.Context(), "cam", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Fox", rows[0].Species)
}

func TestSQLiteReadOnly(t *testing.T) {
	path := t.TempDir() + "/trapwatch.db"
	writer := NewSQLiteStore(path, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, writer.Open())
	require.NoError(t, writer.Save(t.Context(), NewDetection("cam", base, "", decision("Deer", 0.5))))
	require.NoError(t, writer.Close())

	reader := NewSQLiteStore(path, WithReadOnly(), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, reader.Open())
	t.Cleanup(func() { _ = reader.Close() })

	records, err := reader.RecentDetections(t.Context(), "cam", base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	err = reader.Save(t.Context(), NewDetection("cam", base, "", decision("Fox", 0.5)))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestSQLiteReadOnlyDoesNotCreateFile(t *testing.T) {
	path := t.TempDir() + "/nested/trapwatch.db"
	store := NewSQLiteStore(path, WithReadOnly(), WithLogger(logger.NewDiscardLogger()))

	err := store.Open()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.NoFileExists(t, path)
	assert.NoDirExists(t, filepath.Dir(path))
}

func TestMemoryStoreReadOnlyRejectsSave(t *testing.T) {
	store := NewMemoryStore(WithReadOnly())
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	err := store.Save(t.Context(), NewDetection("cam", base, "", decision("Deer", 0.5)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}
