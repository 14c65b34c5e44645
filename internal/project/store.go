// Package project holds the open project: the decoded metadata file, the
// sprite sheet and the client version they were read with. A Store is owned
// by the dispatcher's worker goroutine and is not safe for concurrent use.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/client"
	"github.com/thingforge/thingforge/internal/events"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/fileutil"
	"github.com/thingforge/thingforge/internal/obd"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/sidecar"
	"github.com/thingforge/thingforge/internal/sprite"
	"github.com/thingforge/thingforge/internal/thing"
)

// ErrNoProject is returned by every operation that needs an open project.
var ErrNoProject = fmt.Errorf("%w: no project loaded", fault.ErrValidation)

// LockName is the lock file created next to an open project's files.
const LockName = ".thingforge.lock"

// Options configures a Store.
type Options struct {
	Catalog    *client.Catalog
	Durations  thing.Defaults
	Publisher  events.Publisher
	Logger     *slog.Logger
	Generation obd.Generation
}

// Store owns at most one open project.
type Store struct {
	catalog    *client.Catalog
	durations  thing.Defaults
	publisher  events.Publisher
	logger     *slog.Logger
	generation obd.Generation
	exchange   *obd.Codec

	project *Project
}

// Project is an open metadata/sprite file pair.
type Project struct {
	Dir          string
	SidecarPath  string
	MetadataPath string
	SpritesPath  string
	Version      client.Version
	Things       *thing.File
	Sprites      *sprite.Sheet
	Changed      bool

	things  *thing.Codec
	sprites *sprite.Codec
	lock    *flock.Flock
}

// NewStore returns a store without a project.
func NewStore(opts Options) *Store {
	if opts.Catalog == nil {
		opts.Catalog = client.Builtin()
	}
	if opts.Durations == nil {
		opts.Durations = thing.StandardDefaults()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if !opts.Generation.Valid() {
		opts.Generation = obd.Latest
	}
	return &Store{
		catalog:    opts.Catalog,
		durations:  opts.Durations,
		publisher:  opts.Publisher,
		logger:     opts.Logger,
		generation: opts.Generation,
		exchange:   obd.NewCodec(opts.Durations),
	}
}

// Project returns the open project.
func (s *Store) Project() (*Project, error) {
	if s.project == nil {
		return nil, ErrNoProject
	}
	return s.project, nil
}

// Loaded reports whether a project is open.
func (s *Store) Loaded() bool {
	return s.project != nil
}

// Summary describes the open project.
type Summary struct {
	Dir          string          `json:"dir"`
	MetadataFile string          `json:"metadataFile"`
	SpritesFile  string          `json:"spritesFile"`
	Version      uint16          `json:"version"`
	Features     client.Features `json:"features"`
	Items        int             `json:"items"`
	Outfits      int             `json:"outfits"`
	Effects      int             `json:"effects"`
	Missiles     int             `json:"missiles"`
	Sprites      uint32          `json:"sprites"`
	Changed      bool            `json:"changed"`
}

// Summary returns counts for the open project.
func (p *Project) Summary() Summary {
	return Summary{
		Dir:          p.Dir,
		MetadataFile: p.MetadataPath,
		SpritesFile:  p.SpritesPath,
		Version:      p.Version.Value,
		Features:     p.Version.Features,
		Items:        len(p.Things.Things[thing.Item]),
		Outfits:      len(p.Things.Things[thing.Outfit]),
		Effects:      len(p.Things.Things[thing.Effect]),
		Missiles:     len(p.Things.Things[thing.Missile]),
		Sprites:      p.Sprites.Count(),
		Changed:      p.Changed,
	}
}

// Bounds returns the current id range of c.
func (p *Project) Bounds(c thing.Category) thing.Bounds {
	first := c.FirstID()
	return thing.Bounds{First: first, Last: first + uint32(len(p.Things.Things[c])) - 1}
}

func (s *Store) progress(bar protocol.ProgressBarID, label string) func(done, total int) {
	return func(done, total int) {
		step := total / 100
		if step < 1 {
			step = 1
		}
		if done == total || done%step == 0 {
			s.publisher.Publish(protocol.Progress{Bar: bar, Value: done, Total: total, Label: label})
		}
	}
}

func (s *Store) event(kind protocol.StorageEventKind, c thing.Category, ids ...uint32) {
	s.publisher.Publish(protocol.StorageEvent{Event: kind, Category: c, IDs: ids})
}

func (s *Store) warn(source, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.logger.Warn(msg, "source", source)
	s.publisher.Publish(protocol.Log{Level: protocol.LevelWarn, Message: msg, Source: source})
}

func lockDir(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !ok {
		return nil, fault.Validationf("project in %s is open in another process", dir)
	}
	return lock, nil
}

// relock locks dir for a project about to replace the open one. The open
// project keeps its lock until it is unloaded, so reopening its own
// directory takes that lock over.
func (s *Store) relock(dir string) (*flock.Flock, error) {
	if p := s.project; p != nil && p.lock != nil && filepath.Clean(p.Dir) == filepath.Clean(dir) {
		lock := p.lock
		p.lock = nil
		return lock, nil
	}
	return lockDir(dir)
}

func peekSignature(data []byte) uint32 {
	sig, err := bytecursor.New(data).ReadU32()
	if err != nil {
		return 0
	}
	return sig
}

func (s *Store) resolveVersion(value uint16, metadata, sprites []byte) (client.Version, error) {
	if value != 0 {
		return s.catalog.Resolve(value)
	}
	if v, ok := s.catalog.BySignatures(peekSignature(metadata), peekSignature(sprites)); ok {
		return v, nil
	}
	return client.Version{}, fault.Validationf("unknown file signatures %08X/%08X, a client version is required",
		peekSignature(metadata), peekSignature(sprites))
}

func (s *Store) codecs(v client.Version) (*thing.Codec, *sprite.Codec, error) {
	tc, err := thing.NewCodec(v, s.durations)
	if err != nil {
		return nil, nil, err
	}
	return tc, &sprite.Codec{Version: v}, nil
}

// Load opens a metadata/sprite pair. The open project, if any, is replaced
// only after both files decoded and the new directory is locked.
func (s *Store) Load(ctx context.Context, req protocol.LoadProject) (Summary, error) {
	var sc *sidecar.File
	sidecarPath := req.Sidecar
	metadataPath, spritesPath := req.MetadataFile, req.SpritesFile

	if sidecarPath == "" && metadataPath != "" {
		if found, ok := sidecar.Find(filepath.Dir(metadataPath)); ok {
			sidecarPath = found
		}
	}
	if sidecarPath != "" {
		var err error
		if sc, err = sidecar.Read(sidecarPath); err != nil {
			return Summary{}, err
		}
		if req.Sidecar != "" {
			if sc.MetadataFile == "" {
				sc.MetadataFile = metadataPath
			}
			if sc.SpritesFile == "" {
				sc.SpritesFile = spritesPath
			}
			metadataPath, spritesPath = sc.Paths(filepath.Dir(sidecarPath))
		}
	}
	if metadataPath == "" || spritesPath == "" {
		return Summary{}, fault.Validationf("metadata and sprite files are required")
	}

	metadata, err := os.ReadFile(metadataPath)
	if err != nil {
		return Summary{}, fmt.Errorf("read metadata: %w", err)
	}
	sprites, err := os.ReadFile(spritesPath)
	if err != nil {
		return Summary{}, fmt.Errorf("read sprites: %w", err)
	}

	value := req.Version
	if value == 0 && sc != nil {
		value = sc.Version
	}
	v, err := s.resolveVersion(value, metadata, sprites)
	if err != nil {
		return Summary{}, err
	}
	if sc != nil {
		v = sc.Apply(v)
	}
	if req.Features != nil {
		v.Features = *req.Features
	}

	tc, spc, err := s.codecs(v)
	if err != nil {
		return Summary{}, err
	}

	things, err := tc.DecodeFile(ctx, metadata, s.progress(protocol.BarMetadata, filepath.Base(metadataPath)))
	if err != nil {
		return Summary{}, fmt.Errorf("decode %s: %w", filepath.Base(metadataPath), err)
	}
	sheet, err := spc.DecodeSheet(ctx, sprites, s.progress(protocol.BarSprites, filepath.Base(spritesPath)))
	if err != nil {
		return Summary{}, fmt.Errorf("decode %s: %w", filepath.Base(spritesPath), err)
	}

	dir := filepath.Dir(metadataPath)
	lock, err := s.relock(dir)
	if err != nil {
		return Summary{}, err
	}
	if s.project != nil {
		if err := s.Unload(); err != nil {
			s.logger.Warn("previous project did not unload cleanly", "error", err)
		}
	}

	s.project = &Project{
		Dir:          dir,
		SidecarPath:  sidecarPath,
		MetadataPath: metadataPath,
		SpritesPath:  spritesPath,
		Version:      v,
		Things:       things,
		Sprites:      sheet,
		things:       tc,
		sprites:      spc,
		lock:         lock,
	}
	s.logger.Info("project loaded", "dir", dir, "client", v.String(), "sprites", sheet.Count())
	s.event(protocol.StorageLoaded, 0)
	return s.project.Summary(), nil
}

// Create opens a new project with one blank thing per category. Nothing is
// written until Compile.
func (s *Store) Create(req protocol.CreateProject) (Summary, error) {
	if req.Dir == "" {
		return Summary{}, fault.Validationf("project directory is required")
	}
	v, err := s.catalog.Resolve(req.Version)
	if err != nil {
		return Summary{}, err
	}
	if req.Features != nil {
		v.Features = *req.Features
	}
	tc, spc, err := s.codecs(v)
	if err != nil {
		return Summary{}, err
	}

	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create project directory: %w", err)
	}
	lock, err := s.relock(req.Dir)
	if err != nil {
		return Summary{}, err
	}
	if s.project != nil {
		if err := s.Unload(); err != nil {
			s.logger.Warn("previous project did not unload cleanly", "error", err)
		}
	}

	things := thing.NewFile(v.MetadataSignature)
	for _, c := range thing.Categories() {
		things.Things[c] = []*thing.Thing{thing.New(c, c.FirstID())}
	}

	s.project = &Project{
		Dir:          req.Dir,
		SidecarPath:  filepath.Join(req.Dir, "project.toml"),
		MetadataPath: filepath.Join(req.Dir, sidecar.DefaultMetadataFile),
		SpritesPath:  filepath.Join(req.Dir, sidecar.DefaultSpritesFile),
		Version:      v,
		Things:       things,
		Sprites:      sprite.NewSheet(v.SpritesSignature),
		Changed:      true,
		things:       tc,
		sprites:      spc,
		lock:         lock,
	}
	s.logger.Info("project created", "dir", req.Dir, "client", v.String())
	s.event(protocol.StorageLoaded, 0)
	return s.project.Summary(), nil
}

// Compile writes the project into dir, or in place when dir is empty. Files
// are replaced atomically so a failed compile keeps the previous ones.
func (s *Store) Compile(ctx context.Context, dir string) (Summary, error) {
	p, err := s.Project()
	if err != nil {
		return Summary{}, err
	}

	inPlace := dir == "" || filepath.Clean(dir) == filepath.Clean(p.Dir)
	metadataPath, spritesPath, sidecarPath := p.MetadataPath, p.SpritesPath, p.SidecarPath
	if !inPlace {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Summary{}, fmt.Errorf("create output directory: %w", err)
		}
		metadataPath = filepath.Join(dir, filepath.Base(p.MetadataPath))
		spritesPath = filepath.Join(dir, filepath.Base(p.SpritesPath))
		sidecarPath = filepath.Join(dir, "project.toml")
	}
	if sidecarPath == "" {
		sidecarPath = filepath.Join(p.Dir, "project.toml")
	}

	metadata, err := p.things.EncodeFile(ctx, p.Things, s.progress(protocol.BarMetadata, filepath.Base(metadataPath)))
	if err != nil {
		return Summary{}, fmt.Errorf("encode metadata: %w", err)
	}
	sprites, err := p.sprites.EncodeSheet(ctx, p.Sprites, s.progress(protocol.BarSprites, filepath.Base(spritesPath)))
	if err != nil {
		return Summary{}, fmt.Errorf("encode sprites: %w", err)
	}

	doc := sidecar.FromVersion(p.Version)
	doc.MetadataFile = filepath.Base(metadataPath)
	doc.SpritesFile = filepath.Base(spritesPath)

	if err := fileutil.WriteFileAtomic(metadataPath, metadata, 0o644); err != nil {
		return Summary{}, err
	}
	if err := fileutil.WriteFileAtomic(spritesPath, sprites, 0o644); err != nil {
		return Summary{}, err
	}
	if err := sidecar.Write(sidecarPath, doc); err != nil {
		return Summary{}, err
	}

	if inPlace {
		p.Changed = false
		p.SidecarPath = sidecarPath
	}
	s.logger.Info("project compiled", "metadata", metadataPath, "sprites", spritesPath,
		"metadataBytes", len(metadata), "spriteBytes", len(sprites))
	s.event(protocol.StorageCompiled, 0)

	sum := p.Summary()
	sum.MetadataFile, sum.SpritesFile = metadataPath, spritesPath
	return sum, nil
}

// Unload closes the project and releases its lock. Unsaved changes are
// discarded.
func (s *Store) Unload() error {
	p, err := s.Project()
	if err != nil {
		return err
	}
	s.project = nil
	if p.Changed {
		s.warn("project", "unloading %s with unsaved changes", p.Dir)
	}
	var unlockErr error
	if p.lock != nil {
		if err := p.lock.Unlock(); err != nil {
			unlockErr = fmt.Errorf("release project lock: %w", err)
		}
	}
	s.logger.Info("project unloaded", "dir", p.Dir)
	s.event(protocol.StorageUnloaded, 0)
	return unlockErr
}

// Close unloads the open project, if any.
func (s *Store) Close() error {
	if s.project == nil {
		return nil
	}
	err := s.Unload()
	if errors.Is(err, ErrNoProject) {
		return nil
	}
	return err
}
