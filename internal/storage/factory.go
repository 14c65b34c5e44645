package storage

import (
	"fmt"
	"log/slog"

	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/storage/memory"
	"github.com/thingforge/thingforge/internal/storage/postgres"
	sqlitestorage "github.com/thingforge/thingforge/internal/storage/sqlite"
)

// Config selects and configures a backend.
type Config struct {
	Type     string
	Memory   memory.Config
	SQLite   sqlitestorage.Config
	Postgres postgres.Config
}

// Types lists the accepted backend names.
var Types = []string{"memory", "sqlite", "postgres"}

// NewBackend creates a storage backend based on configuration. The backend
// is not initialized.
func NewBackend(cfg Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		b, err := sqlitestorage.New(cfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("sqlite backend: %w", err)
		}
		return b, nil
	case "postgres":
		return postgres.New(cfg.Postgres), nil
	default:
		return nil, fault.Validationf("unknown storage type: %s", cfg.Type)
	}
}
