package thing

import (
	"math"

	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/client"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/flags"
)

// Codec reads and writes thing records for one client version.
type Codec struct {
	Version   client.Version
	Table     *flags.Table
	Durations Defaults
}

// NewCodec resolves the flag table for v.
func NewCodec(v client.Version, durations Defaults) (*Codec, error) {
	table, err := flags.ForVersion(v.Value)
	if err != nil {
		return nil, err
	}
	if durations == nil {
		durations = StandardDefaults()
	}
	return &Codec{Version: v, Table: table, Durations: durations}, nil
}

func (c *Codec) hasGroupList(category Category) bool {
	return category == Outfit && c.Version.Features.FrameGroups
}

// DecodeThing reads one record. Records carry no id; it comes from the
// record's position in the file.
func (c *Codec) DecodeThing(cur *bytecursor.Cursor, category Category, id uint32) (*Thing, error) {
	props, err := c.Table.DecodeBlock(cur)
	if err != nil {
		return nil, err
	}

	t := &Thing{ID: id, Category: category, Properties: props}

	count := 1
	if c.hasGroupList(category) {
		n, err := cur.ReadU8()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fault.Formatf("%s %d declares no frame groups", category, id)
		}
		count = int(n)
	}

	t.Groups = make([]FrameGroup, 0, count)
	for i := 0; i < count; i++ {
		var typ GroupType
		if c.hasGroupList(category) {
			b, err := cur.ReadU8()
			if err != nil {
				return nil, err
			}
			typ = GroupType(b)
		}
		g, err := c.decodeGroup(cur, category)
		if err != nil {
			return nil, err
		}
		g.Type = typ
		t.Groups = append(t.Groups, g)
	}
	return t, nil
}

func (c *Codec) decodeGroup(cur *bytecursor.Cursor, category Category) (FrameGroup, error) {
	g := FrameGroup{ExactSize: DefaultExactSize, PatternZ: 1}

	var err error
	read := func(dst *uint8) {
		if err != nil {
			return
		}
		*dst, err = cur.ReadU8()
	}

	read(&g.Width)
	read(&g.Height)
	if g.Width > 1 || g.Height > 1 {
		read(&g.ExactSize)
	}
	read(&g.Layers)
	read(&g.PatternX)
	read(&g.PatternY)
	if c.Version.HasPatternZ() {
		read(&g.PatternZ)
	}
	read(&g.Frames)
	if err != nil {
		return FrameGroup{}, err
	}

	if g.Frames > 1 {
		if c.Version.Features.ImprovedAnimations {
			if err := decodeAnimation(cur, &g); err != nil {
				return FrameGroup{}, err
			}
		} else {
			g.Durations = c.Durations.Fill(category, int(g.Frames))
		}
	}

	n := g.SpriteCount()
	g.SpriteIDs = make([]uint32, n)
	for i := range g.SpriteIDs {
		if c.Version.Features.Extended {
			g.SpriteIDs[i], err = cur.ReadU32()
		} else {
			var v uint16
			v, err = cur.ReadU16()
			g.SpriteIDs[i] = uint32(v)
		}
		if err != nil {
			return FrameGroup{}, err
		}
	}
	return g, nil
}

func decodeAnimation(cur *bytecursor.Cursor, g *FrameGroup) error {
	mode, err := cur.ReadU8()
	if err != nil {
		return err
	}
	loop, err := cur.ReadI32()
	if err != nil {
		return err
	}
	start, err := cur.ReadI8()
	if err != nil {
		return err
	}
	g.AnimationMode = AnimationMode(mode)
	g.LoopCount = loop
	g.StartFrame = start

	g.Durations = make([]FrameDuration, g.Frames)
	for i := range g.Durations {
		minimum, err := cur.ReadU32()
		if err != nil {
			return err
		}
		maximum, err := cur.ReadU32()
		if err != nil {
			return err
		}
		g.Durations[i] = FrameDuration{Minimum: minimum, Maximum: maximum}
	}
	return nil
}

// EncodeThing writes the record of t. It rejects an id outside bounds and
// any group whose sprite list or durations disagree with its dimensions.
func (c *Codec) EncodeThing(cur *bytecursor.Cursor, t *Thing, bounds Bounds) error {
	if err := c.check(t, bounds); err != nil {
		return err
	}

	if err := c.Table.EncodeBlock(cur, t.Properties); err != nil {
		return err
	}
	if c.hasGroupList(t.Category) {
		cur.WriteU8(uint8(len(t.Groups)))
	}
	for i := range t.Groups {
		g := &t.Groups[i]
		if c.hasGroupList(t.Category) {
			cur.WriteU8(uint8(g.Type))
		}
		c.encodeGroup(cur, g)
	}
	return nil
}

func (c *Codec) check(t *Thing, bounds Bounds) error {
	if !bounds.Contains(t.ID) {
		return fault.Rangef("%s id %d outside [%d, %d]", t.Category, t.ID, bounds.First, bounds.Last)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if !c.hasGroupList(t.Category) && len(t.Groups) != 1 {
		return fault.Validationf("%s %d has %d frame groups, client %s stores one", t.Category, t.ID, len(t.Groups), c.Version)
	}
	if len(t.Groups) > math.MaxUint8 {
		return fault.Validationf("%s %d has too many frame groups", t.Category, t.ID)
	}
	for _, g := range t.Groups {
		if !c.Version.HasPatternZ() && g.PatternZ != 1 {
			return fault.Validationf("client %s has no pattern z, %s %d uses %d", c.Version, t.Category, t.ID, g.PatternZ)
		}
		if !c.Version.Features.Extended {
			for _, id := range g.SpriteIDs {
				if id > math.MaxUint16 {
					return fault.Rangef("sprite id %d needs the extended feature", id)
				}
			}
		}
	}
	return nil
}

func (c *Codec) encodeGroup(cur *bytecursor.Cursor, g *FrameGroup) {
	cur.WriteU8(g.Width)
	cur.WriteU8(g.Height)
	if g.Width > 1 || g.Height > 1 {
		cur.WriteU8(g.ExactSize)
	}
	cur.WriteU8(g.Layers)
	cur.WriteU8(g.PatternX)
	cur.WriteU8(g.PatternY)
	if c.Version.HasPatternZ() {
		cur.WriteU8(g.PatternZ)
	}
	cur.WriteU8(g.Frames)

	if g.Frames > 1 && c.Version.Features.ImprovedAnimations {
		cur.WriteU8(uint8(g.AnimationMode))
		cur.WriteI32(g.LoopCount)
		cur.WriteI8(g.StartFrame)
		for _, d := range g.Durations {
			cur.WriteU32(d.Minimum)
			cur.WriteU32(d.Maximum)
		}
	}

	for _, id := range g.SpriteIDs {
		if c.Version.Features.Extended {
			cur.WriteU32(id)
		} else {
			cur.WriteU16(uint16(id))
		}
	}
}
