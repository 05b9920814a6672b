package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

// memoryDSN is the SQLite path of a private in-memory database.
const memoryDSN = ":memory:"

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Path string
}

// NewSQLiteStore creates a store for the database file at path. The path
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(path string, opts ...Option) *SQLiteStore {
	return &SQLiteStore{DataStore: DataStore{opt: buildOptions(opts)}, Path: path}
}

// Open sets up the SQLite database connection and migrates the schema. A
// read-only store opens an existing file without creating or changing it.
func (store *SQLiteStore) Open() error {
	path := store.Path
	if path == "" {
		path = "trapwatch.db"
	}

	dsn := memoryDSN
	switch {
	case path == memoryDSN:
		// private database, nothing on disk to protect
	case store.opt.readOnly:
		if _, err := os.Stat(path); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("path", path).
				Build()
		}
		dsn = "file:" + path
	default:
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("path", path).
					Build()
			}
		}
		dsn = path
	}
	// foreign keys for cascading prediction deletes, busy timeout for concurrent writers
	dsn += "?_foreign_keys=on&_busy_timeout=5000"
	if store.opt.readOnly && path != memoryDSN {
		dsn += "&mode=ro"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewSQLTracer(store.opt.log.Module("sqlite"), store.opt.slowThreshold),
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}

	if path == memoryDSN {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return errors.New(err).Component("datastore").Category(errors.CategoryDatabase).Build()
		}
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	return performAutoMigration(db, store.opt, "SQLite", path)
}

// Close closes the SQLite database.
func (store *SQLiteStore) Close() error {
	err := closeDB(store.DB)
	store.DB = nil
	return err
}
