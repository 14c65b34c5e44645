package project

import (
	"context"
	"slices"

	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/sprite"
	"github.com/thingforge/thingforge/internal/thing"
)

func (p *Project) sprite(id uint32) (*sprite.Sprite, error) {
	sp, ok := p.Sprites.Get(id)
	if !ok {
		return nil, fault.Rangef("sprite id %d outside [1, %d]", id, p.Sprites.Count())
	}
	return sp, nil
}

func (p *Project) eachThing(fn func(t *thing.Thing)) {
	for _, c := range thing.Categories() {
		for _, t := range p.Things.Things[c] {
			fn(t)
		}
	}
}

// references counts how many tiles point at each sprite id.
func (p *Project) references() map[uint32]int {
	refs := make(map[uint32]int)
	p.eachThing(func(t *thing.Thing) {
		for _, g := range t.Groups {
			for _, id := range g.SpriteIDs {
				if id != 0 {
					refs[id]++
				}
			}
		}
	})
	return refs
}

// GetSprite returns a copy of one sprite.
func (s *Store) GetSprite(id uint32) (*sprite.Sprite, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	sp, err := p.sprite(id)
	if err != nil {
		return nil, err
	}
	return sp.Clone(), nil
}

// Sprites returns copies of the given sprites.
func (s *Store) Sprites(ids []uint32) ([]*sprite.Sprite, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	out := make([]*sprite.Sprite, 0, len(ids))
	for _, id := range ids {
		sp, err := p.sprite(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sp.Clone())
	}
	return out, nil
}

// FindSprites lists sprites that no thing references, that have no visible
// pixel, or both when both flags are set.
func (s *Store) FindSprites(ctx context.Context, unused, empty bool) ([]uint32, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	if !unused && !empty {
		return nil, fault.Validationf("select unused or empty sprites")
	}
	var refs map[uint32]int
	if unused {
		refs = p.references()
	}
	progress := s.progress(protocol.BarFind, "sprites")
	total := len(p.Sprites.Sprites)
	ids := []uint32{}
	for i, sp := range p.Sprites.Sprites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if (unused && refs[sp.ID] == 0) || (empty && sp.IsEmpty()) {
			ids = append(ids, sp.ID)
		}
		progress(i+1, total)
	}
	return ids, nil
}

// AddSprite appends pixels as a new sprite and returns its id.
func (s *Store) AddSprite(pixels []byte) (uint32, error) {
	p, err := s.Project()
	if err != nil {
		return 0, err
	}
	if !p.Version.Features.Extended && p.Sprites.Count() >= 0xFFFF {
		return 0, fault.Rangef("sprite ids are exhausted, the extended feature is off")
	}
	sp, err := p.Sprites.Append(pixels)
	if err != nil {
		return 0, err
	}
	p.Changed = true
	s.event(protocol.StorageAdded, 0, sp.ID)
	return sp.ID, nil
}

// ReplaceSprite overwrites the pixels of an existing sprite.
func (s *Store) ReplaceSprite(id uint32, pixels []byte) error {
	p, err := s.Project()
	if err != nil {
		return err
	}
	if _, err := p.sprite(id); err != nil {
		return err
	}
	sp, err := sprite.FromPixels(id, pixels)
	if err != nil {
		return err
	}
	p.Sprites.Sprites[id-1] = sp
	p.Changed = true
	s.event(protocol.StorageChanged, 0, id)
	return nil
}

// RemoveSprites blanks the given sprites. Trailing blank sprites are cut
// from the sheet and references to them are cleared.
func (s *Store) RemoveSprites(ids []uint32) ([]uint32, error) {
	p, err := s.Project()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := p.sprite(id); err != nil {
			return nil, err
		}
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	for _, id := range sorted {
		p.Sprites.Sprites[id-1] = sprite.New(id)
	}
	removed := make(map[uint32]bool, len(sorted))
	for _, id := range sorted {
		removed[id] = true
	}
	n := len(p.Sprites.Sprites)
	for n > 0 && removed[uint32(n)] {
		n--
	}
	if n < len(p.Sprites.Sprites) {
		cleared := make(map[uint32]uint32)
		for id := uint32(n + 1); id <= p.Sprites.Count(); id++ {
			cleared[id] = 0
		}
		p.Sprites.Sprites = p.Sprites.Sprites[:n]
		p.eachThing(func(t *thing.Thing) { t.RemapSprites(cleared) })
	}
	p.Changed = true
	s.event(protocol.StorageRemoved, 0, sorted...)
	return sorted, nil
}

// OptimizeResult reports what OptimizeSprites did.
type OptimizeResult struct {
	Before  uint32 `json:"before"`
	After   uint32 `json:"after"`
	Removed int    `json:"removed"`
}

// OptimizeSprites drops unreferenced and empty sprites, renumbers the rest
// without gaps and rewrites every reference.
func (s *Store) OptimizeSprites(ctx context.Context) (OptimizeResult, error) {
	p, err := s.Project()
	if err != nil {
		return OptimizeResult{}, err
	}
	refs := p.references()
	progress := s.progress(protocol.BarOptimize, "sprites")

	before := p.Sprites.Count()
	remap := make(map[uint32]uint32, len(refs))
	kept := make([]*sprite.Sprite, 0, len(refs))
	for i, sp := range p.Sprites.Sprites {
		if err := ctx.Err(); err != nil {
			return OptimizeResult{}, err
		}
		if refs[sp.ID] > 0 && !sp.IsEmpty() {
			next := uint32(len(kept) + 1)
			remap[sp.ID] = next
			kept = append(kept, &sprite.Sprite{ID: next, Pixels: sp.Pixels})
		} else {
			remap[sp.ID] = 0
		}
		progress(i+1, int(before))
	}
	p.Sprites.Sprites = kept
	p.eachThing(func(t *thing.Thing) { t.RemapSprites(remap) })

	res := OptimizeResult{Before: before, After: p.Sprites.Count(), Removed: int(before) - len(kept)}
	if res.Removed > 0 {
		p.Changed = true
		s.event(protocol.StorageChanged, 0)
	}
	s.logger.Info("sprites optimized", "before", res.Before, "after", res.After)
	return res, nil
}
