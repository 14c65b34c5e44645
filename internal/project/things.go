package project

import (
	"context"
	"slices"

	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/flags"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/thing"
)

// ThingSummary is the list view of a thing.
type ThingSummary struct {
	ID         uint32           `json:"id"`
	Category   thing.Category   `json:"category"`
	Properties []flags.Property `json:"properties"`
	Groups     int              `json:"groups"`
	Width      uint8            `json:"width"`
	Height     uint8            `json:"height"`
	Frames     uint8            `json:"frames"`
	Sprites    int              `json:"sprites"`
	Empty      bool             `json:"empty"`
}

// Summarize builds the list view of t.
func Summarize(t *thing.Thing) ThingSummary {
	sum := ThingSummary{
		ID:         t.ID,
		Category:   t.Category,
		Properties: t.Properties.Properties(),
		Groups:     len(t.Groups),
		Sprites:    len(t.SpriteIDs()),
		Empty:      t.IsEmpty(),
	}
	if len(t.Groups) > 0 {
		g := t.Groups[0]
		sum.Width, sum.Height, sum.Frames = g.Width, g.Height, g.Frames
	}
	return sum
}

func (p *Project) lookup(c thing.Category, id uint32) (*thing.Thing, error) {
	if !c.Valid() {
		return nil, fault.Validationf("unknown category %d", uint8(c))
	}
	t, ok := p.Things.Get(c, id)
	if !ok {
		b := p.Bounds(c)
		return nil, fault.Rangef("%s id %d outside [%d, %d]", c, id, b.First, b.Last)
	}
	return t, nil
}

// check runs t through the encoder without keeping the bytes, so anything
// that could not be compiled is rejected now.
func (p *Project) check(t *thing.Thing) error {
	if err := p.things.EncodeThing(bytecursor.NewWriter(64), t, p.Bounds(t.Category)); err != nil {
		return err
	}
	count := p.Sprites.Count()
	for _, id := range t.SpriteIDs() {
		if id > count {
			return fault.Validationf("%s %d references sprite %d, the sheet has %d", t.Category, t.ID, id, count)
		}
	}
	return nil
}

// GetThing returns a copy of one thing.
func (s *Store) GetThing(c thing.Category, id uint32) (*thing.Thing, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	t, err := p.lookup(c, id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// ListThings summarizes the things in [first, last], clipped to the
// category. Zero bounds select the whole category.
func (s *Store) ListThings(c thing.Category, first, last uint32) ([]ThingSummary, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, fault.Validationf("unknown category %d", uint8(c))
	}
	b := p.Bounds(c)
	if first == 0 || first < b.First {
		first = b.First
	}
	if last == 0 || last > b.Last {
		last = b.Last
	}
	if first > last {
		return []ThingSummary{}, nil
	}
	out := make([]ThingSummary, 0, last-first+1)
	for id := first; id <= last; id++ {
		t, _ := p.Things.Get(c, id)
		out = append(out, Summarize(t))
	}
	return out, nil
}

// Matches reports whether t satisfies f.
func Matches(t *thing.Thing, f protocol.Filter) bool {
	v, ok := t.Properties[f.Property]
	if f.Absent {
		return !ok
	}
	if !ok {
		return false
	}
	if len(f.Ints) > len(v.Ints) {
		return false
	}
	return slices.Equal(v.Ints[:len(f.Ints)], f.Ints)
}

// FindThings returns the ids of c matching every filter.
func (s *Store) FindThings(ctx context.Context, c thing.Category, filters []protocol.Filter) ([]uint32, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, fault.Validationf("unknown category %d", uint8(c))
	}
	things := p.Things.Things[c]
	progress := s.progress(protocol.BarFind, c.String())
	ids := []uint32{}
	for i, t := range things {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		match := true
		for _, f := range filters {
			if !Matches(t, f) {
				match = false
				break
			}
		}
		if match {
			ids = append(ids, t.ID)
		}
		progress(i+1, len(things))
	}
	return ids, nil
}

// NewThing appends a blank thing to c.
func (s *Store) NewThing(c thing.Category) (*thing.Thing, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, fault.Validationf("unknown category %d", uint8(c))
	}
	next := p.Bounds(c).Last + 1
	if next > 0xFFFF {
		return nil, fault.Rangef("%s ids are exhausted", c)
	}
	t := thing.New(c, next)
	p.Things.Things[c] = append(p.Things.Things[c], t)
	p.Changed = true
	s.event(protocol.StorageAdded, c, t.ID)
	return t.Clone(), nil
}

// UpdateThing replaces the stored thing with the same category and id.
func (s *Store) UpdateThing(t *thing.Thing) error {
	p, err := s.Project()
	if err != nil {
		return err
	}
	if t == nil {
		return fault.Validationf("no thing given")
	}
	if _, err := p.lookup(t.Category, t.ID); err != nil {
		return err
	}
	if err := p.check(t); err != nil {
		return err
	}
	p.Things.Things[t.Category][t.ID-t.Category.FirstID()] = t.Clone()
	p.Changed = true
	s.event(protocol.StorageChanged, t.Category, t.ID)
	return nil
}

// RemoveThings removes ids from c. Removing the last id shrinks the
// category; any other id is replaced by a blank thing so later ids keep
// their numbers.
func (s *Store) RemoveThings(c thing.Category, ids []uint32) ([]uint32, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := p.lookup(c, id); err != nil {
			return nil, err
		}
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	slices.Reverse(sorted)

	first := c.FirstID()
	for _, id := range sorted {
		things := p.Things.Things[c]
		if id == p.Bounds(c).Last {
			p.Things.Things[c] = things[:len(things)-1]
			continue
		}
		things[id-first] = thing.New(c, id)
	}
	p.Changed = true
	slices.Reverse(sorted)
	s.event(protocol.StorageRemoved, c, sorted...)
	return sorted, nil
}
