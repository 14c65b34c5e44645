package protocol

import (
	"github.com/thingforge/thingforge/internal/client"
	"github.com/thingforge/thingforge/internal/flags"
	"github.com/thingforge/thingforge/internal/thing"
)

// Command is one message of the protocol.
type Command interface {
	Kind() Kind
}

// LoadProject opens a metadata/sprite file pair. When Sidecar is set the
// other fields are read from it and only override what the sidecar leaves
// empty.
type LoadProject struct {
	Sidecar      string           `json:"sidecar,omitempty"`
	MetadataFile string           `json:"metadataFile,omitempty"`
	SpritesFile  string           `json:"spritesFile,omitempty"`
	Version      uint16           `json:"version,omitempty"`
	Features     *client.Features `json:"features,omitempty"`
}

// CreateProject starts an empty project that will be compiled into Dir.
type CreateProject struct {
	Dir      string           `json:"dir"`
	Version  uint16           `json:"version"`
	Features *client.Features `json:"features,omitempty"`
}

// CompileProject writes the project. An empty Dir writes in place.
type CompileProject struct {
	Dir string `json:"dir,omitempty"`
}

type UnloadProject struct{}

type GetThing struct {
	Category thing.Category `json:"category"`
	ID       uint32         `json:"id"`
}

// ListThings returns summaries of the ids in [First, Last]. Zero bounds
// select the whole category.
type ListThings struct {
	Category thing.Category `json:"category"`
	First    uint32         `json:"first,omitempty"`
	Last     uint32         `json:"last,omitempty"`
}

// Filter matches things by one property. With Absent the property must be
// missing; otherwise it must be present and, when Ints is set, its numeric
// fields must start with Ints.
type Filter struct {
	Property flags.Property `json:"property"`
	Absent   bool           `json:"absent,omitempty"`
	Ints     []int32        `json:"ints,omitempty"`
}

// FindThings returns the ids of a category matching every filter.
type FindThings struct {
	Category thing.Category `json:"category"`
	Filters  []Filter       `json:"filters"`
}

type NewThing struct {
	Category thing.Category `json:"category"`
}

type UpdateThing struct {
	Thing *thing.Thing `json:"thing"`
}

type RemoveThings struct {
	Category thing.Category `json:"category"`
	IDs      []uint32       `json:"ids"`
}

// ImportThing reads an exchange container. A non-zero ReplaceID overwrites
// that thing instead of appending a new one.
type ImportThing struct {
	Path      string `json:"path"`
	ReplaceID uint32 `json:"replaceId,omitempty"`
}

// ExportThing writes an exchange container. A zero Generation uses the
// configured one.
type ExportThing struct {
	Category   thing.Category `json:"category"`
	ID         uint32         `json:"id"`
	Path       string         `json:"path"`
	Generation int            `json:"generation,omitempty"`
}

type GetSprite struct {
	ID uint32 `json:"id"`
}

// FindSprites lists sprite ids that no thing references (Unused) or that
// have no visible pixel (Empty).
type FindSprites struct {
	Unused bool `json:"unused,omitempty"`
	Empty  bool `json:"empty,omitempty"`
}

// AddSprite appends a sprite from raw RGBA bytes or an image file.
type AddSprite struct {
	Pixels []byte `json:"pixels,omitempty"`
	Path   string `json:"path,omitempty"`
}

type ReplaceSprite struct {
	ID     uint32 `json:"id"`
	Pixels []byte `json:"pixels,omitempty"`
	Path   string `json:"path,omitempty"`
}

type RemoveSprites struct {
	IDs []uint32 `json:"ids"`
}

type OptimizeSprites struct{}

// ExportSpriteImage writes one image per sprite into Dir.
type ExportSpriteImage struct {
	IDs []uint32 `json:"ids"`
	Dir string   `json:"dir"`
}

// ExportCatalog stores a summary of every thing in the configured catalog
// backend, or in Backend when set.
type ExportCatalog struct {
	Backend string `json:"backend,omitempty"`
}

// Cancel aborts the operation started by RequestID, or every operation in
// flight when RequestID is empty.
type Cancel struct {
	RequestID string `json:"requestId,omitempty"`
}

// Unrecognized stands in for an envelope whose kind is not part of the
// protocol.
type Unrecognized struct {
	Name string `json:"name"`
}

func (LoadProject) Kind() Kind       { return KindLoadProject }
func (CreateProject) Kind() Kind     { return KindCreateProject }
func (CompileProject) Kind() Kind    { return KindCompileProject }
func (UnloadProject) Kind() Kind     { return KindUnloadProject }
func (GetThing) Kind() Kind          { return KindGetThing }
func (ListThings) Kind() Kind        { return KindListThings }
func (FindThings) Kind() Kind        { return KindFindThings }
func (NewThing) Kind() Kind          { return KindNewThing }
func (UpdateThing) Kind() Kind       { return KindUpdateThing }
func (RemoveThings) Kind() Kind      { return KindRemoveThings }
func (ImportThing) Kind() Kind       { return KindImportThing }
func (ExportThing) Kind() Kind       { return KindExportThing }
func (GetSprite) Kind() Kind         { return KindGetSprite }
func (FindSprites) Kind() Kind       { return KindFindSprites }
func (AddSprite) Kind() Kind         { return KindAddSprite }
func (ReplaceSprite) Kind() Kind     { return KindReplaceSprite }
func (RemoveSprites) Kind() Kind     { return KindRemoveSprites }
func (OptimizeSprites) Kind() Kind   { return KindOptimizeSprites }
func (ExportSpriteImage) Kind() Kind { return KindExportSpriteImage }
func (ExportCatalog) Kind() Kind     { return KindExportCatalog }
func (Cancel) Kind() Kind            { return KindCancel }
func (Unrecognized) Kind() Kind      { return Unknown }
