package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings conf.MySQLSettings
}

// NewMySQLStore creates a store for the given MySQL server.
func NewMySQLStore(settings conf.MySQLSettings, opts ...Option) *MySQLStore {
	return &MySQLStore{DataStore: DataStore{opt: buildOptions(opts)}, Settings: settings}
}

// dsn builds the connection string. Timestamps are stored in UTC.
func (store *MySQLStore) dsn() string {
	port := store.Settings.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		store.Settings.Username, store.Settings.Password,
		store.Settings.Host, port,
		store.Settings.Database)
}

// Open sets up the MySQL database connection and migrates the schema unless
// the store is read-only.
func (store *MySQLStore) Open() error {
	log := store.opt.log.Module("mysql")

	db, err := gorm.Open(mysql.Open(store.dsn()), &gorm.Config{
		Logger: logger.NewSQLTracer(log, store.opt.slowThreshold),
	})
	if err != nil {
		log.Error("Failed to open MySQL database",
			logger.String("host", store.Settings.Host),
			logger.Int("port", store.Settings.Port),
			logger.String("database", store.Settings.Database),
			logger.Error(err))
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("host", store.Settings.Host).
			Context("database", store.Settings.Database).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, store.opt, "MySQL",
		fmt.Sprintf("%s:%d/%s", store.Settings.Host, store.Settings.Port, store.Settings.Database))
}

// Close closes the MySQL connection pool.
func (store *MySQLStore) Close() error {
	err := closeDB(store.DB)
	store.DB = nil
	return err
}
