package thing

import (
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/flags"
)

// GroupType tells the frame groups of an outfit apart.
type GroupType uint8

const (
	GroupDefault GroupType = 0
	GroupWalking GroupType = 1
)

// AnimationMode controls whether a thing animates in sync with others.
type AnimationMode uint8

const (
	AnimationAsync AnimationMode = 0
	AnimationSync  AnimationMode = 1
)

// DefaultExactSize is the drawn size of multi-tile things that do not
// declare one.
const DefaultExactSize = 32

// FrameGroup is one animation configuration of a thing.
type FrameGroup struct {
	Type      GroupType `json:"type"`
	Width     uint8     `json:"width"`
	Height    uint8     `json:"height"`
	ExactSize uint8     `json:"exactSize"`
	Layers    uint8     `json:"layers"`
	PatternX  uint8     `json:"patternX"`
	PatternY  uint8     `json:"patternY"`
	PatternZ  uint8     `json:"patternZ"`
	Frames    uint8     `json:"frames"`

	AnimationMode AnimationMode   `json:"animationMode"`
	LoopCount     int32           `json:"loopCount"`
	StartFrame    int8            `json:"startFrame"`
	Durations     []FrameDuration `json:"durations,omitempty"`

	SpriteIDs []uint32 `json:"spriteIds"`
}

// NewFrameGroup returns a 1x1 single frame group pointing at no sprite.
func NewFrameGroup() FrameGroup {
	return FrameGroup{
		Width:     1,
		Height:    1,
		ExactSize: DefaultExactSize,
		Layers:    1,
		PatternX:  1,
		PatternY:  1,
		PatternZ:  1,
		Frames:    1,
		SpriteIDs: []uint32{0},
	}
}

// SpriteCount is the number of sprite references the dimensions require.
func (g *FrameGroup) SpriteCount() int {
	return int(g.Width) * int(g.Height) * int(g.Layers) *
		int(g.PatternX) * int(g.PatternY) * int(g.PatternZ) * int(g.Frames)
}

// SpriteIndex returns the position in SpriteIDs of one tile.
func (g *FrameGroup) SpriteIndex(w, h, layer, px, py, pz, frame int) int {
	return ((((((frame*int(g.PatternZ)+pz)*int(g.PatternY)+py)*int(g.PatternX)+px)*
		int(g.Layers)+layer)*int(g.Height)+h)*int(g.Width) + w)
}

// Validate checks dimensions against the sprite list and the durations.
func (g *FrameGroup) Validate() error {
	if g.Width == 0 || g.Height == 0 || g.Layers == 0 || g.PatternX == 0 ||
		g.PatternY == 0 || g.PatternZ == 0 || g.Frames == 0 {
		return fault.Validationf("frame group has a zero dimension")
	}
	if want := g.SpriteCount(); len(g.SpriteIDs) != want {
		return fault.Validationf("frame group needs %d sprite ids, has %d", want, len(g.SpriteIDs))
	}
	if g.Frames > 1 && len(g.Durations) != int(g.Frames) {
		return fault.Validationf("frame group has %d frames but %d durations", g.Frames, len(g.Durations))
	}
	for _, d := range g.Durations {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of g.
func (g FrameGroup) Clone() FrameGroup {
	out := g
	out.SpriteIDs = append([]uint32(nil), g.SpriteIDs...)
	if g.Durations != nil {
		out.Durations = append([]FrameDuration(nil), g.Durations...)
	}
	return out
}

// Thing is an item, outfit, effect or missile definition.
type Thing struct {
	ID         uint32       `json:"id"`
	Category   Category     `json:"category"`
	Properties flags.Set    `json:"properties"`
	Groups     []FrameGroup `json:"groups"`
}

// New returns an empty thing: no properties and one blank frame group.
func New(category Category, id uint32) *Thing {
	return &Thing{
		ID:         id,
		Category:   category,
		Properties: flags.Set{},
		Groups:     []FrameGroup{NewFrameGroup()},
	}
}

// IsEmpty reports whether t carries nothing but blank sprites.
func (t *Thing) IsEmpty() bool {
	if len(t.Properties) != 0 {
		return false
	}
	for _, g := range t.Groups {
		for _, id := range g.SpriteIDs {
			if id != 0 {
				return false
			}
		}
	}
	return true
}

// Group returns the group of the given type, or nil.
func (t *Thing) Group(typ GroupType) *FrameGroup {
	for i := range t.Groups {
		if t.Groups[i].Type == typ {
			return &t.Groups[i]
		}
	}
	return nil
}

// SpriteIDs returns every non-zero sprite id referenced, in first-use order
// without repeats.
func (t *Thing) SpriteIDs() []uint32 {
	seen := map[uint32]bool{}
	var out []uint32
	for _, g := range t.Groups {
		for _, id := range g.SpriteIDs {
			if id == 0 || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// RemapSprites rewrites every sprite reference through m. Ids missing from m
// are kept.
func (t *Thing) RemapSprites(m map[uint32]uint32) {
	for gi := range t.Groups {
		ids := t.Groups[gi].SpriteIDs
		for i, id := range ids {
			if to, ok := m[id]; ok {
				ids[i] = to
			}
		}
	}
}

// Validate checks every frame group.
func (t *Thing) Validate() error {
	if !t.Category.Valid() {
		return fault.Validationf("thing %d has no valid category", t.ID)
	}
	if len(t.Groups) == 0 {
		return fault.Validationf("%s %d has no frame group", t.Category, t.ID)
	}
	for i := range t.Groups {
		if err := t.Groups[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of t.
func (t *Thing) Clone() *Thing {
	out := &Thing{
		ID:         t.ID,
		Category:   t.Category,
		Properties: t.Properties.Clone(),
		Groups:     make([]FrameGroup, len(t.Groups)),
	}
	for i, g := range t.Groups {
		out.Groups[i] = g.Clone()
	}
	return out
}
