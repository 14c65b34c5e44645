// Package catalog flattens a project's things into rows that storage
// backends can persist and query outside the editor.
package catalog

import (
	"context"
	"time"

	"github.com/thingforge/thingforge/internal/flags"
	"github.com/thingforge/thingforge/internal/thing"
)

// Record is the catalog view of one thing.
type Record struct {
	Category   string                `json:"category"`
	ID         uint32                `json:"id"`
	Properties map[string]flags.Value `json:"properties"`
	Groups     int                   `json:"groups"`
	Width      uint8                 `json:"width"`
	Height     uint8                 `json:"height"`
	Layers     uint8                 `json:"layers"`
	Frames     uint8                 `json:"frames"`
	Animated   bool                  `json:"animated"`
	SpriteIDs  []uint32              `json:"spriteIds"`
}

// Export is one catalog snapshot of a project.
type Export struct {
	ClientVersion uint16    `json:"clientVersion"`
	Description   string    `json:"description"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"createdAt"`
	Records       []Record  `json:"records"`
}

// Count returns the number of records of category c.
func (e *Export) Count(c thing.Category) int {
	n := 0
	for _, r := range e.Records {
		if r.Category == c.String() {
			n++
		}
	}
	return n
}

// FromThing flattens t. Empty things are kept so ids stay contiguous.
func FromThing(t *thing.Thing) Record {
	r := Record{
		Category:   t.Category.String(),
		ID:         t.ID,
		Properties: make(map[string]flags.Value, len(t.Properties)),
		Groups:     len(t.Groups),
		SpriteIDs:  t.SpriteIDs(),
	}
	for p, v := range t.Properties {
		r.Properties[p.String()] = v
	}
	if len(t.Groups) > 0 {
		g := t.Groups[0]
		r.Width, r.Height, r.Layers, r.Frames = g.Width, g.Height, g.Layers, g.Frames
		r.Animated = g.Frames > 1
	}
	return r
}

// Build flattens every thing of f in category then id order.
func Build(ctx context.Context, f *thing.File) ([]Record, error) {
	var out []Record
	for _, c := range thing.Categories() {
		for _, t := range f.Things[c] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out = append(out, FromThing(t))
		}
	}
	return out, nil
}
