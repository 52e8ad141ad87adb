// Package db provides the GORM-based metadata store of an index version.
// It uses the pure-Go SQLite driver, so index artifacts need no cgo.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/asteroid-belt/partmatch/internal/models"
)

// DB wraps the GORM database connection with metadata operations.
type DB struct {
	*gorm.DB
	path string
}

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	}
}

// New opens (or creates) the database and runs migrations.
func New(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(cfg, true)
}

// Open opens an existing database without creating or migrating it.
func Open(cfg Config) (*DB, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return open(cfg, false)
}

func open(cfg Config, migrate bool) (*DB, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode: WAL has visibility issues with the pure-Go driver
	// and leaves side files next to published artifacts.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)", cfg.Path)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	wrapped := &DB{DB: gdb, path: cfg.Path}
	if migrate {
		if err := wrapped.AutoMigrate(&models.ProductMetadata{}); err != nil {
			_ = wrapped.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return wrapped, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
