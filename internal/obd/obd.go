// Package obd reads and writes exchange containers: one thing and the
// sprites it references, LZMA compressed, readable by any project
// regardless of its client version.
package obd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/flags"
	"github.com/thingforge/thingforge/internal/sprite"
	"github.com/thingforge/thingforge/internal/thing"
	"github.com/ulikunitz/xz/lzma"
)

// Generation tags the container layout.
type Generation uint16

const (
	// V1 stores a single frame group without animation data.
	V1 Generation = 100
	// V2 adds animation data and the frame block offset.
	V2 Generation = 200
	// V3 adds typed frame groups.
	V3 Generation = 300
)

// Latest is the generation written when none is requested.
const Latest = V3

// Valid reports whether g is a known generation.
func (g Generation) Valid() bool {
	return g == V1 || g == V2 || g == V3
}

func (g Generation) String() string {
	switch g {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return fmt.Sprintf("generation(%d)", uint16(g))
	}
}

// ParseGeneration accepts 1, 2, 3 or the raw tags 100, 200, 300.
func ParseGeneration(n int) (Generation, error) {
	switch n {
	case 1, 100:
		return V1, nil
	case 2, 200:
		return V2, nil
	case 3, 300:
		return V3, nil
	}
	return 0, fault.Validationf("unknown container generation %d", n)
}

// Container is a decoded exchange container. Thing.ID is zero; the
// importing project assigns one.
type Container struct {
	Generation    Generation
	ClientVersion uint16
	Thing         *thing.Thing
	Sprites       []*sprite.Sprite
}

// Sprite returns the bundled sprite with the given id.
func (c *Container) Sprite(id uint32) (*sprite.Sprite, bool) {
	for _, sp := range c.Sprites {
		if sp.ID == id {
			return sp, true
		}
	}
	return nil, false
}

const (
	markerNone      = 0
	markerAnimation = 1
)

// Codec fills missing frame durations from Durations.
type Codec struct {
	Durations thing.Defaults
}

// NewCodec returns a codec using durations, or the standard ones when nil.
func NewCodec(durations thing.Defaults) *Codec {
	if durations == nil {
		durations = thing.StandardDefaults()
	}
	return &Codec{Durations: durations}
}

// Decode decompresses and parses a container.
func (c *Codec) Decode(data []byte) (*Container, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fault.Formatf("container is not lzma compressed: %v", err)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fault.Formatf("decompress container: %v", err)
	}
	return c.decodePayload(bytecursor.New(payload))
}

func (c *Codec) decodePayload(cur *bytecursor.Cursor) (*Container, error) {
	tag, err := cur.ReadU16()
	if err != nil {
		return nil, err
	}
	gen := Generation(tag)
	if !gen.Valid() {
		return nil, fault.Formatf("unknown container generation %d", tag)
	}

	out := &Container{Generation: gen}
	if out.ClientVersion, err = cur.ReadU16(); err != nil {
		return nil, err
	}
	cat, err := cur.ReadU8()
	if err != nil {
		return nil, err
	}
	category := thing.Category(cat)
	if !category.Valid() {
		return nil, fault.Formatf("unknown thing category %d", cat)
	}

	var groupsAt uint32
	if gen >= V2 {
		if groupsAt, err = cur.ReadU32(); err != nil {
			return nil, err
		}
	}

	props, err := flags.Exchange.DecodeBlock(cur)
	if err != nil {
		return nil, err
	}
	if gen >= V2 && int(groupsAt) != cur.Position() {
		return nil, fault.Formatf("frame block offset %d, block starts at %d", groupsAt, cur.Position())
	}

	t := &thing.Thing{Category: category, Properties: props}
	count, err := cur.ReadU8()
	if err != nil {
		return nil, err
	}
	if count == 0 || (gen < V3 && count != 1) {
		return nil, fault.Formatf("%s container holds %d frame groups", gen, count)
	}
	for i := 0; i < int(count); i++ {
		g, err := c.decodeGroup(cur, gen, category)
		if err != nil {
			return nil, err
		}
		t.Groups = append(t.Groups, g)
	}
	out.Thing = t

	if err := decodeSprites(cur, out); err != nil {
		return nil, err
	}
	for _, id := range t.SpriteIDs() {
		if _, ok := out.Sprite(id); !ok {
			return nil, fault.Formatf("sprite %d is referenced but not bundled", id)
		}
	}
	return out, nil
}

func (c *Codec) decodeGroup(cur *bytecursor.Cursor, gen Generation, category thing.Category) (thing.FrameGroup, error) {
	g := thing.FrameGroup{ExactSize: thing.DefaultExactSize}

	var err error
	read := func(dst *uint8) {
		if err != nil {
			return
		}
		*dst, err = cur.ReadU8()
	}

	if gen >= V3 {
		var typ uint8
		read(&typ)
		g.Type = thing.GroupType(typ)
	}
	read(&g.Width)
	read(&g.Height)
	if g.Width > 1 || g.Height > 1 {
		read(&g.ExactSize)
	}
	read(&g.Layers)
	read(&g.PatternX)
	read(&g.PatternY)
	read(&g.PatternZ)
	read(&g.Frames)
	var marker uint8
	read(&marker)
	if err != nil {
		return thing.FrameGroup{}, err
	}

	switch {
	case marker == markerAnimation && gen == V1:
		return thing.FrameGroup{}, fault.Formatf("v1 container carries frame durations")
	case marker == markerAnimation:
		if err := decodeAnimation(cur, &g); err != nil {
			return thing.FrameGroup{}, err
		}
	case marker != markerNone:
		return thing.FrameGroup{}, fault.Formatf("unknown animation marker %d", marker)
	case g.Frames > 1:
		g.Durations = c.Durations.Fill(category, int(g.Frames))
	}

	g.SpriteIDs = make([]uint32, g.SpriteCount())
	for i := range g.SpriteIDs {
		if g.SpriteIDs[i], err = cur.ReadU32(); err != nil {
			return thing.FrameGroup{}, err
		}
	}
	return g, nil
}

func decodeAnimation(cur *bytecursor.Cursor, g *thing.FrameGroup) error {
	mode, err := cur.ReadU8()
	if err != nil {
		return err
	}
	if g.LoopCount, err = cur.ReadI32(); err != nil {
		return err
	}
	if g.StartFrame, err = cur.ReadI8(); err != nil {
		return err
	}
	g.AnimationMode = thing.AnimationMode(mode)
	g.Durations = make([]thing.FrameDuration, g.Frames)
	for i := range g.Durations {
		var d thing.FrameDuration
		if d.Minimum, err = cur.ReadU32(); err != nil {
			return err
		}
		if d.Maximum, err = cur.ReadU32(); err != nil {
			return err
		}
		if err := d.Validate(); err != nil {
			return fault.Formatf("frame %d: %v", i, err)
		}
		g.Durations[i] = d
	}
	return nil
}

func decodeSprites(cur *bytecursor.Cursor, out *Container) error {
	count, err := cur.ReadU32()
	if err != nil {
		return err
	}
	if int64(count)*8 > int64(cur.Remaining()) {
		return fault.OutOfDataf("%d bundled sprites exceed the container", count)
	}
	out.Sprites = make([]*sprite.Sprite, 0, count)
	for i := uint32(0); i < count; i++ {
		id, err := cur.ReadU32()
		if err != nil {
			return err
		}
		size, err := cur.ReadU32()
		if err != nil {
			return err
		}
		if size != sprite.PixelBytes {
			return fault.Formatf("sprite %d has %d pixel bytes", id, size)
		}
		pixels, err := cur.ReadBytes(int(size))
		if err != nil {
			return err
		}
		out.Sprites = append(out.Sprites, &sprite.Sprite{ID: id, Pixels: pixels})
	}
	return nil
}

// Narrow returns the parts of t that gen can represent: V1 keeps the first
// frame group without animation data, V2 keeps the first frame group. The
// result never shares memory with t.
func Narrow(t *thing.Thing, gen Generation, durations thing.Defaults) *thing.Thing {
	out := t.Clone()
	if gen < V3 && len(out.Groups) > 1 {
		out.Groups = out.Groups[:1]
	}
	if gen == V1 {
		for i := range out.Groups {
			g := &out.Groups[i]
			g.AnimationMode = thing.AnimationAsync
			g.LoopCount = 0
			g.StartFrame = 0
			g.Durations = nil
			if g.Frames > 1 {
				g.Durations = durations.Fill(out.Category, int(g.Frames))
			}
		}
	}
	if gen < V3 {
		for i := range out.Groups {
			out.Groups[i].Type = thing.GroupDefault
		}
	}
	return out
}

// Encode writes t and the sprites it references in generation gen. Data gen
// cannot represent is dropped, see Narrow.
func (c *Codec) Encode(t *thing.Thing, sprites []*sprite.Sprite, gen Generation, clientVersion uint16) ([]byte, error) {
	if !gen.Valid() {
		return nil, fault.Validationf("unknown container generation %d", uint16(gen))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	narrowed := Narrow(t, gen, c.Durations)

	byID := make(map[uint32]*sprite.Sprite, len(sprites))
	for _, sp := range sprites {
		byID[sp.ID] = sp
	}
	ids := narrowed.SpriteIDs()
	bundle := make([]*sprite.Sprite, 0, len(ids))
	for _, id := range ids {
		sp, ok := byID[id]
		if !ok {
			return nil, fault.Validationf("sprite %d referenced by the thing was not supplied", id)
		}
		if len(sp.Pixels) != sprite.PixelBytes {
			return nil, fault.Validationf("sprite %d has %d pixel bytes", id, len(sp.Pixels))
		}
		bundle = append(bundle, sp)
	}

	cur := bytecursor.NewWriter(64 + len(bundle)*(sprite.PixelBytes+8))
	cur.WriteU16(uint16(gen))
	cur.WriteU16(clientVersion)
	cur.WriteU8(uint8(narrowed.Category))

	placeholder := cur.Position()
	if gen >= V2 {
		cur.WriteU32(0)
	}
	if err := flags.Exchange.EncodeBlock(cur, narrowed.Properties); err != nil {
		return nil, err
	}
	if gen >= V2 {
		groupsAt := cur.Position()
		if err := cur.SetPosition(placeholder); err != nil {
			return nil, err
		}
		cur.WriteU32(uint32(groupsAt))
		if err := cur.SetPosition(groupsAt); err != nil {
			return nil, err
		}
	}

	cur.WriteU8(uint8(len(narrowed.Groups)))
	for i := range narrowed.Groups {
		encodeGroup(cur, &narrowed.Groups[i], gen)
	}

	cur.WriteU32(uint32(len(bundle)))
	for _, sp := range bundle {
		cur.WriteU32(sp.ID)
		cur.WriteU32(uint32(len(sp.Pixels)))
		cur.WriteBytes(sp.Pixels)
	}

	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(cur.Bytes()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeGroup(cur *bytecursor.Cursor, g *thing.FrameGroup, gen Generation) {
	if gen >= V3 {
		cur.WriteU8(uint8(g.Type))
	}
	cur.WriteU8(g.Width)
	cur.WriteU8(g.Height)
	if g.Width > 1 || g.Height > 1 {
		cur.WriteU8(g.ExactSize)
	}
	cur.WriteU8(g.Layers)
	cur.WriteU8(g.PatternX)
	cur.WriteU8(g.PatternY)
	cur.WriteU8(g.PatternZ)
	cur.WriteU8(g.Frames)

	if gen >= V2 && g.Frames > 1 {
		cur.WriteU8(markerAnimation)
		cur.WriteU8(uint8(g.AnimationMode))
		cur.WriteI32(g.LoopCount)
		cur.WriteI8(g.StartFrame)
		for _, d := range g.Durations {
			cur.WriteU32(d.Minimum)
			cur.WriteU32(d.Maximum)
		}
	} else {
		cur.WriteU8(markerNone)
	}

	for _, id := range g.SpriteIDs {
		cur.WriteU32(id)
	}
}
