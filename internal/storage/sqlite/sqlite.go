// Package sqlitestorage stores catalog exports in a SQLite database.
// It wraps the gorm backend; the SQLite-specific concerns are opening the
// file (or an in-memory database) and dumping it to disk after each export.
package sqlitestorage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thingforge/thingforge/internal/catalog"
	"github.com/thingforge/thingforge/internal/database"
	gormstorage "github.com/thingforge/thingforge/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path     string // database file; empty keeps the database in memory
	DumpPath string // VACUUM INTO target written after every export
}

// Backend wraps the gorm backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg Config
	log *slog.Logger
}

// New opens the SQLite database.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(db),
		cfg:     cfg,
		log:     logger,
	}, nil
}

// SaveCatalog stores e and refreshes the disk dump.
func (b *Backend) SaveCatalog(ctx context.Context, e *catalog.Export) (string, error) {
	where, err := b.Backend.SaveCatalog(ctx, e)
	if err != nil {
		return "", err
	}
	if b.cfg.DumpPath == "" {
		return where, nil
	}
	start := time.Now()
	if err := database.DumpToDisk(b.DB(), b.cfg.DumpPath); err != nil {
		return "", err
	}
	b.log.Debug("dumped catalog database", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return b.cfg.DumpPath, nil
}
