// Package postgres stores catalog exports in a PostgreSQL database through
// the gorm backend. The connection is opened lazily by Init.
package postgres

import (
	"context"
	"fmt"

	"github.com/thingforge/thingforge/internal/catalog"
	"github.com/thingforge/thingforge/internal/database"
	"github.com/thingforge/thingforge/internal/fault"
	gormstorage "github.com/thingforge/thingforge/internal/storage/gorm"
)

// Config holds the connection settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the connection string for c.
func (c Config) DSN() string {
	return database.PostgresDSN(c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// Backend implements the catalog backend on PostgreSQL.
type Backend struct {
	cfg   Config
	store *gormstorage.Backend
}

// New creates a backend; no connection is made until Init.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init connects, validates the connection and migrates the schema.
func (b *Backend) Init() error {
	if b.cfg.Host == "" || b.cfg.Database == "" {
		return fault.Validationf("postgres backend needs a host and a database")
	}
	db, err := database.OpenPostgres(b.cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	store := gormstorage.New(db)
	if err := store.Init(); err != nil {
		sqlDB.Close()
		return err
	}
	b.store = store
	return nil
}

// Close closes the connection if Init opened one.
func (b *Backend) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// SaveCatalog stores e as a new run.
func (b *Backend) SaveCatalog(ctx context.Context, e *catalog.Export) (string, error) {
	if b.store == nil {
		return "", fault.Validationf("postgres backend is not initialized")
	}
	return b.store.SaveCatalog(ctx, e)
}
