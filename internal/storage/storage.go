// Package storage selects where catalog exports are persisted.
package storage

import (
	"context"

	"github.com/thingforge/thingforge/internal/catalog"
)

// Backend is the interface all catalog backends must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveCatalog persists e and describes where it went.
	SaveCatalog(ctx context.Context, e *catalog.Export) (string, error)
}

// FileExporter is an optional interface for backends that write the export
// to a file.
type FileExporter interface {
	GetExportedFilePath() string
}
