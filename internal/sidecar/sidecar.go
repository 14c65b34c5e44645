// Package sidecar reads and writes the small document that sits next to a
// metadata and sprite file pair and records the features they were built
// with.
package sidecar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/thingforge/thingforge/internal/client"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/fileutil"
	"github.com/thingforge/thingforge/internal/sprite"
)

// File is the side-metadata document.
type File struct {
	Extended       bool   `toml:"extended" json:"extended"`
	Transparency   bool   `toml:"transparency" json:"transparency"`
	FrameDurations bool   `toml:"frame-durations" json:"frame-durations"`
	FrameGroups    bool   `toml:"frame-groups" json:"frame-groups"`
	MetadataFile   string `toml:"metadata-file" json:"metadata-file"`
	SpritesFile    string `toml:"sprites-file" json:"sprites-file"`
	SpriteSize     int    `toml:"sprite-size" json:"sprite-size"`
	SpriteDataSize int    `toml:"sprite-data-size" json:"sprite-data-size"`
	Version        uint16 `toml:"version,omitempty" json:"version,omitempty"`
}

// Default file names used when the document does not name them.
const (
	DefaultMetadataFile = "Tibia.dat"
	DefaultSpritesFile  = "Tibia.spr"
)

// FromVersion describes v with the default file names.
func FromVersion(v client.Version) *File {
	return &File{
		Extended:       v.Features.Extended,
		Transparency:   v.Features.Transparency,
		FrameDurations: v.Features.ImprovedAnimations,
		FrameGroups:    v.Features.FrameGroups,
		MetadataFile:   DefaultMetadataFile,
		SpritesFile:    DefaultSpritesFile,
		SpriteSize:     sprite.Size,
		SpriteDataSize: sprite.PixelBytes,
		Version:        v.Value,
	}
}

// Features returns the feature flags recorded in f.
func (f *File) Features() client.Features {
	return client.Features{
		Extended:           f.Extended,
		Transparency:       f.Transparency,
		ImprovedAnimations: f.FrameDurations,
		FrameGroups:        f.FrameGroups,
	}
}

// Apply returns v with the features of f.
func (f *File) Apply(v client.Version) client.Version {
	v.Features = f.Features()
	return v
}

// Validate rejects sprite dimensions the codecs cannot handle. Zero values
// mean the field was absent.
func (f *File) Validate() error {
	if f.SpriteSize != 0 && f.SpriteSize != sprite.Size {
		return fault.Validationf("sprite size %d is not supported, only %d", f.SpriteSize, sprite.Size)
	}
	if f.SpriteDataSize != 0 && f.SpriteDataSize != sprite.PixelBytes {
		return fault.Validationf("sprite data size %d is not supported, only %d", f.SpriteDataSize, sprite.PixelBytes)
	}
	return nil
}

// Paths resolves the metadata and sprite file paths relative to dir.
func (f *File) Paths(dir string) (metadata, sprites string) {
	metadata, sprites = f.MetadataFile, f.SpritesFile
	if metadata == "" {
		metadata = DefaultMetadataFile
	}
	if sprites == "" {
		sprites = DefaultSpritesFile
	}
	if !filepath.IsAbs(metadata) {
		metadata = filepath.Join(dir, metadata)
	}
	if !filepath.IsAbs(sprites) {
		sprites = filepath.Join(dir, sprites)
	}
	return metadata, sprites
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Parse decodes data in the syntax implied by path.
func Parse(path string, data []byte) (*File, error) {
	var f File
	if isTOML(path) {
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&f); err != nil {
			return nil, fault.Formatf("parse %s: %v", filepath.Base(path), err)
		}
	} else if err := json.Unmarshal(data, &f); err != nil {
		return nil, fault.Formatf("parse %s: %v", filepath.Base(path), err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Read loads and validates the document at path.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	return Parse(path, data)
}

// Marshal encodes f in the syntax implied by path.
func Marshal(path string, f *File) ([]byte, error) {
	if isTOML(path) {
		return toml.Marshal(f)
	}
	return json.MarshalIndent(f, "", "  ")
}

// Write stores f at path atomically.
func Write(path string, f *File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	data, err := Marshal(path, f)
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// Find returns the first sidecar document present in dir.
func Find(dir string) (string, bool) {
	for _, name := range []string{"project.toml", "project.json", "Tibia.toml", "Tibia.json"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
