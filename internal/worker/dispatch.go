package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/thingforge/thingforge/internal/catalog"
	"github.com/thingforge/thingforge/internal/dispatcher"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/imaging"
	"github.com/thingforge/thingforge/internal/obd"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/storage"
)

// RegisterHandlers registers a handler for every request kind. Cancel is
// answered by the dispatcher itself.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Project lifecycle
	dispatcher.Handle(d, m.handleLoadProject, dispatcher.Logged())
	dispatcher.Handle(d, m.handleCreateProject, dispatcher.Logged())
	dispatcher.Handle(d, m.handleCompileProject, dispatcher.Logged())
	dispatcher.Handle(d, m.handleUnloadProject, dispatcher.Logged())

	// Things
	dispatcher.Handle(d, m.handleGetThing)
	dispatcher.Handle(d, m.handleListThings)
	dispatcher.Handle(d, m.handleFindThings, dispatcher.Logged())
	dispatcher.Handle(d, m.handleNewThing, dispatcher.Logged())
	dispatcher.Handle(d, m.handleUpdateThing, dispatcher.Logged())
	dispatcher.Handle(d, m.handleRemoveThings, dispatcher.Logged())
	dispatcher.Handle(d, m.handleImportThing, dispatcher.Logged())
	dispatcher.Handle(d, m.handleExportThing, dispatcher.Logged())

	// Sprites
	dispatcher.Handle(d, m.handleGetSprite)
	dispatcher.Handle(d, m.handleFindSprites, dispatcher.Logged())
	dispatcher.Handle(d, m.handleAddSprite, dispatcher.Logged())
	dispatcher.Handle(d, m.handleReplaceSprite, dispatcher.Logged())
	dispatcher.Handle(d, m.handleRemoveSprites, dispatcher.Logged())
	dispatcher.Handle(d, m.handleOptimizeSprites, dispatcher.Logged())

	// Exports that finish off the worker goroutine
	dispatcher.Handle(d, m.handleExportSpriteImage, dispatcher.Logged())
	dispatcher.Handle(d, m.handleExportCatalog, dispatcher.Logged())
}

// IDResult answers requests that create or write one object.
type IDResult struct {
	ID uint32 `json:"id"`
}

// PathResult answers requests that write one file.
type PathResult struct {
	Path string `json:"path"`
}

// SpriteImages answers ExportSpriteImage.
type SpriteImages struct {
	Paths []string `json:"paths"`
}

// CatalogResult answers ExportCatalog.
type CatalogResult struct {
	Backend  string `json:"backend"`
	Location string `json:"location"`
	Records  int    `json:"records"`
}

func (m *Manager) handleLoadProject(ctx context.Context, c protocol.LoadProject) (any, error) {
	sum, err := m.deps.Store.Load(ctx, c)
	m.track()
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (m *Manager) handleCreateProject(_ context.Context, c protocol.CreateProject) (any, error) {
	sum, err := m.deps.Store.Create(c)
	m.track()
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (m *Manager) handleCompileProject(ctx context.Context, c protocol.CompileProject) (any, error) {
	sum, err := m.deps.Store.Compile(ctx, c.Dir)
	if err != nil {
		return nil, err
	}
	m.deps.Logger.Info("project compiled", "metadata", sum.MetadataFile, "sprites", sum.SpritesFile)
	return sum, nil
}

func (m *Manager) handleUnloadProject(_ context.Context, _ protocol.UnloadProject) (any, error) {
	err := m.deps.Store.Unload()
	m.track()
	return nil, err
}

func (m *Manager) handleGetThing(_ context.Context, c protocol.GetThing) (any, error) {
	return m.deps.Store.GetThing(c.Category, c.ID)
}

func (m *Manager) handleListThings(_ context.Context, c protocol.ListThings) (any, error) {
	return m.deps.Store.ListThings(c.Category, c.First, c.Last)
}

func (m *Manager) handleFindThings(ctx context.Context, c protocol.FindThings) (any, error) {
	return m.deps.Store.FindThings(ctx, c.Category, c.Filters)
}

func (m *Manager) handleNewThing(_ context.Context, c protocol.NewThing) (any, error) {
	return m.deps.Store.NewThing(c.Category)
}

func (m *Manager) handleUpdateThing(_ context.Context, c protocol.UpdateThing) (any, error) {
	if c.Thing == nil {
		return nil, fault.Validationf("update carries no thing")
	}
	if err := m.deps.Store.UpdateThing(c.Thing); err != nil {
		return nil, err
	}
	return IDResult{ID: c.Thing.ID}, nil
}

func (m *Manager) handleRemoveThings(_ context.Context, c protocol.RemoveThings) (any, error) {
	return m.deps.Store.RemoveThings(c.Category, c.IDs)
}

func (m *Manager) handleImportThing(_ context.Context, c protocol.ImportThing) (any, error) {
	if c.Path == "" {
		return nil, fault.Validationf("import needs a container path")
	}
	return m.deps.Store.ImportThing(c.Path, c.ReplaceID)
}

func (m *Manager) handleExportThing(_ context.Context, c protocol.ExportThing) (any, error) {
	if c.Path == "" {
		return nil, fault.Validationf("export needs a container path")
	}
	var gen obd.Generation
	if c.Generation != 0 {
		var err error
		if gen, err = obd.ParseGeneration(c.Generation); err != nil {
			return nil, err
		}
	}
	path, err := m.deps.Store.ExportThing(c.Category, c.ID, c.Path, gen)
	if err != nil {
		return nil, err
	}
	return PathResult{Path: path}, nil
}

func (m *Manager) handleGetSprite(_ context.Context, c protocol.GetSprite) (any, error) {
	return m.deps.Store.GetSprite(c.ID)
}

func (m *Manager) handleFindSprites(ctx context.Context, c protocol.FindSprites) (any, error) {
	return m.deps.Store.FindSprites(ctx, c.Unused, c.Empty)
}

// pixels returns the RGBA bytes of a sprite request, reading Path when set.
func pixels(raw []byte, path string) ([]byte, error) {
	switch {
	case path != "" && len(raw) > 0:
		return nil, fault.Validationf("sprite has both pixels and a path")
	case path != "":
		return imaging.ReadFile(path)
	case len(raw) == 0:
		return nil, fault.Validationf("sprite has neither pixels nor a path")
	}
	return raw, nil
}

func (m *Manager) handleAddSprite(_ context.Context, c protocol.AddSprite) (any, error) {
	px, err := pixels(c.Pixels, c.Path)
	if err != nil {
		return nil, err
	}
	id, err := m.deps.Store.AddSprite(px)
	if err != nil {
		return nil, err
	}
	return IDResult{ID: id}, nil
}

func (m *Manager) handleReplaceSprite(_ context.Context, c protocol.ReplaceSprite) (any, error) {
	px, err := pixels(c.Pixels, c.Path)
	if err != nil {
		return nil, err
	}
	if err := m.deps.Store.ReplaceSprite(c.ID, px); err != nil {
		return nil, err
	}
	return IDResult{ID: c.ID}, nil
}

func (m *Manager) handleRemoveSprites(_ context.Context, c protocol.RemoveSprites) (any, error) {
	return m.deps.Store.RemoveSprites(c.IDs)
}

func (m *Manager) handleOptimizeSprites(ctx context.Context, _ protocol.OptimizeSprites) (any, error) {
	return m.deps.Store.OptimizeSprites(ctx)
}

func (m *Manager) handleExportSpriteImage(_ context.Context, c protocol.ExportSpriteImage) (any, error) {
	if c.Dir == "" {
		return nil, fault.Validationf("sprite export needs a directory")
	}
	// Copies are taken here; the store may change once this handler returns.
	sprites, err := m.deps.Store.Sprites(c.IDs)
	if err != nil {
		return nil, err
	}
	enc, pub := m.deps.Encoder, m.deps.Publisher
	return dispatcher.Async(func(ctx context.Context) (any, error) {
		paths, err := imaging.ExportSprites(ctx, c.Dir, sprites, enc, func(done, total int) {
			pub.Publish(protocol.Progress{Bar: protocol.BarSprites, Value: done, Total: total, Label: "images"})
		})
		if err != nil {
			return nil, err
		}
		return SpriteImages{Paths: paths}, nil
	}), nil
}

func (m *Manager) handleExportCatalog(ctx context.Context, c protocol.ExportCatalog) (any, error) {
	p, err := m.deps.Store.Project()
	if err != nil {
		return nil, err
	}
	records, err := catalog.Build(ctx, p.Things)
	if err != nil {
		return nil, err
	}
	export := &catalog.Export{
		ClientVersion: p.Version.Value,
		Description:   p.Version.String(),
		Source:        p.Dir,
		CreatedAt:     time.Now().UTC(),
		Records:       records,
	}

	cfg := m.deps.Settings.Storage()
	if c.Backend != "" {
		cfg.Type = c.Backend
	}
	backend, err := storage.NewBackend(cfg, m.deps.Logger)
	if err != nil {
		return nil, err
	}
	kind := cfg.Type
	if kind == "" {
		kind = "memory"
	}

	return dispatcher.Async(func(ctx context.Context) (any, error) {
		if err := backend.Init(); err != nil {
			return nil, fmt.Errorf("init %s backend: %w", kind, err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				m.deps.Logger.Warn("close catalog backend", "backend", kind, "error", err)
			}
		}()
		location, err := backend.SaveCatalog(ctx, export)
		if err != nil {
			return nil, err
		}
		return CatalogResult{Backend: kind, Location: location, Records: len(export.Records)}, nil
	}), nil
}
