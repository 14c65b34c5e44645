package project

import (
	"fmt"
	"os"

	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/fileutil"
	"github.com/thingforge/thingforge/internal/obd"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/sprite"
	"github.com/thingforge/thingforge/internal/thing"
)

// ImportResult reports where an imported thing and its sprites landed.
type ImportResult struct {
	Thing   *thing.Thing `json:"thing"`
	Sprites []uint32     `json:"sprites"`
	Dropped []string     `json:"dropped,omitempty"`
}

// ImportThing reads an exchange container. Its sprites are appended to the
// sheet and its thing is appended to its category, or replaces replaceID.
// Properties and frame groups the project cannot store are dropped with a
// warning.
func (s *Store) ImportThing(path string, replaceID uint32) (ImportResult, error) {
	p, err := s.Project()
	if err != nil {
		return ImportResult{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read container: %w", err)
	}
	container, err := s.exchange.Decode(data)
	if err != nil {
		return ImportResult{}, err
	}
	return s.importContainer(p, container, replaceID)
}

func (s *Store) importContainer(p *Project, container *obd.Container, replaceID uint32) (ImportResult, error) {
	t := container.Thing.Clone()
	c := t.Category

	replacing := replaceID != 0
	if replacing {
		if _, err := p.lookup(c, replaceID); err != nil {
			return ImportResult{}, err
		}
		t.ID = replaceID
	} else {
		t.ID = p.Bounds(c).Last + 1
		if t.ID > 0xFFFF {
			return ImportResult{}, fault.Rangef("%s ids are exhausted", c)
		}
	}

	var res ImportResult
	kept, dropped := p.things.Table.Filter(t.Properties)
	t.Properties = kept
	for _, prop := range dropped {
		res.Dropped = append(res.Dropped, prop.String())
	}
	if len(dropped) > 0 {
		s.warn("import", "%s: client %s does not support %v, dropped", c, p.Version, res.Dropped)
	}
	if len(t.Groups) > 1 && !(c == thing.Outfit && p.Version.Features.FrameGroups) {
		s.warn("import", "%s: client %s stores one frame group, kept the first of %d", c, p.Version, len(t.Groups))
		t.Groups = t.Groups[:1]
		t.Groups[0].Type = thing.GroupDefault
	}

	// Validate against a sheet that already holds the new sprites before
	// touching the project.
	ids := t.SpriteIDs()
	remap := make(map[uint32]uint32, len(ids))
	next := p.Sprites.Count() + 1
	for _, id := range ids {
		if _, ok := container.Sprite(id); !ok {
			return ImportResult{}, fault.Formatf("container has no pixels for sprite %d", id)
		}
		remap[id] = next
		next++
	}
	t.RemapSprites(remap)

	staged := make([]*sprite.Sprite, 0, len(ids))
	for _, id := range ids {
		sp, _ := container.Sprite(id)
		staged = append(staged, &sprite.Sprite{ID: remap[id], Pixels: sp.Pixels})
	}
	prevSprites := p.Sprites.Sprites
	p.Sprites.Sprites = append(p.Sprites.Sprites[:len(prevSprites):len(prevSprites)], staged...)

	things := p.Things.Things[c]
	if !replacing {
		p.Things.Things[c] = append(things, thing.New(c, t.ID))
	}
	if err := p.check(t); err != nil {
		p.Sprites.Sprites = prevSprites
		p.Things.Things[c] = things
		return ImportResult{}, err
	}
	p.Things.Things[c][t.ID-c.FirstID()] = t
	p.Changed = true

	for _, sp := range staged {
		res.Sprites = append(res.Sprites, sp.ID)
	}
	if len(res.Sprites) > 0 {
		s.event(protocol.StorageAdded, 0, res.Sprites...)
	}
	if replacing {
		s.event(protocol.StorageChanged, c, t.ID)
	} else {
		s.event(protocol.StorageAdded, c, t.ID)
	}
	s.logger.Info("thing imported", "category", c.String(), "id", t.ID,
		"generation", container.Generation.String(), "sprites", len(res.Sprites))
	res.Thing = t.Clone()
	return res, nil
}

// ExportThing writes one thing and its sprites to an exchange container at
// path. A zero generation uses the configured one.
func (s *Store) ExportThing(c thing.Category, id uint32, path string, gen obd.Generation) (string, error) {
	p, err := s.Project()
	if err != nil {
		return "", err
	}
	t, err := p.lookup(c, id)
	if err != nil {
		return "", err
	}
	if gen == 0 {
		gen = s.generation
	}
	ids := t.SpriteIDs()
	sprites := make([]*sprite.Sprite, 0, len(ids))
	for _, sid := range ids {
		sp, err := p.sprite(sid)
		if err != nil {
			return "", err
		}
		sprites = append(sprites, sp)
	}
	data, err := s.exchange.Encode(t, sprites, gen, p.Version.Value)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	if gen < obd.V3 && len(t.Groups) > 1 {
		s.warn("export", "%s %d: %s keeps only the first of %d frame groups", c, id, gen, len(t.Groups))
	}
	s.logger.Info("thing exported", "category", c.String(), "id", id, "path", path, "generation", gen.String())
	return path, nil
}
