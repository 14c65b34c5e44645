// Package memory keeps catalog exports in memory and writes each one to a
// JSON file, gzipped when configured.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/thingforge/thingforge/internal/catalog"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/fileutil"
)

// Config controls where exports are written. An empty OutputDir keeps them
// in memory only.
type Config struct {
	OutputDir      string
	CompressOutput bool
}

// Backend stores catalog exports in memory.
type Backend struct {
	cfg Config

	mu             sync.RWMutex
	exports        []*catalog.Export
	lastExportPath string
}

// New creates a new memory backend.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// SaveCatalog keeps e and writes it to the output directory.
func (b *Backend) SaveCatalog(ctx context.Context, e *catalog.Export) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.exports = append(b.exports, e)
	if b.cfg.OutputDir == "" {
		return fmt.Sprintf("memory export %d", len(b.exports)), nil
	}

	path := filepath.Join(b.cfg.OutputDir, b.filename(e))
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := encode(e, b.cfg.CompressOutput)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	b.lastExportPath = path
	return path, nil
}

// Exports returns every export saved so far.
func (b *Backend) Exports() []*catalog.Export {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*catalog.Export(nil), b.exports...)
}

// GetExportedFilePath returns the file written by the last export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func (b *Backend) filename(e *catalog.Export) string {
	name := "catalog"
	if e.Source != "" {
		name = fileutil.SanitizeName(filepath.Base(e.Source))
	}
	timestamp := e.CreatedAt.Format("20060102_150405")
	if b.cfg.CompressOutput {
		return fmt.Sprintf("%s_%d_%s.json.gz", name, e.ClientVersion, timestamp)
	}
	return fmt.Sprintf("%s_%d_%s.json", name, e.ClientVersion, timestamp)
}

func encode(e *catalog.Export, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	var w io.Writer = &buf
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(&buf)
		w = gz
	}
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("failed to compress catalog: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ReadExport reads a file written by SaveCatalog. A .gz suffix selects
// gzip decompression.
func ReadExport(path string) (*catalog.Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fault.Formatf("%s: %v", path, err)
		}
		defer gz.Close()
		r = gz
	}
	var e catalog.Export
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fault.Formatf("%s: %v", path, err)
	}
	return &e, nil
}
