package sprite

import (
	"context"
	"math"

	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/client"
	"github.com/thingforge/thingforge/internal/fault"
)

// ProgressFunc receives the number of sprites handled so far.
type ProgressFunc func(done, total int)

// Sheet is a decoded sprite file. Sprites[i] has id i+1.
type Sheet struct {
	Signature uint32
	Sprites   []*Sprite
}

// NewSheet returns a sheet without sprites.
func NewSheet(signature uint32) *Sheet {
	return &Sheet{Signature: signature}
}

// Count is the highest sprite id.
func (s *Sheet) Count() uint32 {
	return uint32(len(s.Sprites))
}

// Get returns the sprite with the given id.
func (s *Sheet) Get(id uint32) (*Sprite, bool) {
	if id == 0 || id > s.Count() {
		return nil, false
	}
	return s.Sprites[id-1], true
}

// Append adds pixels as a new sprite and returns it.
func (s *Sheet) Append(pixels []byte) (*Sprite, error) {
	sp, err := FromPixels(s.Count()+1, pixels)
	if err != nil {
		return nil, err
	}
	s.Sprites = append(s.Sprites, sp)
	return sp, nil
}

// Codec reads and writes sprite files for one client version.
type Codec struct {
	Version client.Version
}

func (c *Codec) width() int {
	if c.Version.Features.Extended {
		return 4
	}
	return 2
}

func (c *Codec) readEntry(cur *bytecursor.Cursor) (uint32, error) {
	if c.Version.Features.Extended {
		return cur.ReadU32()
	}
	v, err := cur.ReadU16()
	return uint32(v), err
}

// DecodeSheet parses a sprite file. ctx is checked between sprites.
func (c *Codec) DecodeSheet(ctx context.Context, data []byte, progress ProgressFunc) (*Sheet, error) {
	cur := bytecursor.New(data)
	signature, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}
	if want := c.Version.SpritesSignature; want != 0 && signature != want {
		return nil, fault.Formatf("sprite signature %08X does not match client %s (%08X)", signature, c.Version, want)
	}

	count, err := c.readEntry(cur)
	if err != nil {
		return nil, err
	}
	if int64(count)*int64(c.width()) > int64(cur.Remaining()) {
		return nil, fault.OutOfDataf("offset table for %d sprites exceeds file", count)
	}
	offsets := make([]uint32, count)
	for i := range offsets {
		if offsets[i], err = c.readEntry(cur); err != nil {
			return nil, err
		}
	}

	sheet := &Sheet{Signature: signature, Sprites: make([]*Sprite, count)}
	for i, offset := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := uint32(i) + 1
		sp, err := c.decodeBlock(cur, id, offset)
		if err != nil {
			return nil, err
		}
		sheet.Sprites[i] = sp
		if progress != nil {
			progress(i+1, len(offsets))
		}
	}
	return sheet, nil
}

func (c *Codec) decodeBlock(cur *bytecursor.Cursor, id, offset uint32) (*Sprite, error) {
	if offset == 0 {
		return New(id), nil
	}
	if err := cur.SetPosition(int(offset)); err != nil {
		return nil, err
	}
	if err := cur.Skip(len(ColorKey)); err != nil {
		return nil, err
	}
	size, err := cur.ReadU16()
	if err != nil {
		return nil, err
	}
	block, err := cur.ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	pixels, err := Decompress(block, c.Version.Features.Transparency)
	if err != nil {
		return nil, err
	}
	return &Sprite{ID: id, Pixels: pixels}, nil
}

// EncodeSheet compresses every sprite and rebuilds the offset table.
// Empty sprites get offset 0 and no block.
func (c *Codec) EncodeSheet(ctx context.Context, sheet *Sheet, progress ProgressFunc) ([]byte, error) {
	count := len(sheet.Sprites)
	limit := uint64(math.MaxUint16)
	if c.Version.Features.Extended {
		limit = math.MaxUint32
	}
	if uint64(count) > limit {
		return nil, fault.Rangef("%d sprites need the extended feature", count)
	}

	w := c.width()
	cur := bytecursor.NewWriter(4 + w + count*(w+64))
	cur.WriteU32(sheet.Signature)
	c.writeEntry(cur, uint32(count))

	table := cur.Position()
	if err := cur.SetPosition(table + count*w); err != nil {
		return nil, err
	}

	offsets := make([]uint32, count)
	for i, sp := range sheet.Sprites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sp != nil && !sp.IsEmpty() {
			block, err := Compress(sp.Pixels, c.Version.Features.Transparency)
			if err != nil {
				return nil, err
			}
			if len(block) > math.MaxUint16 {
				return nil, fault.Rangef("sprite %d compresses to %d bytes", i+1, len(block))
			}
			offset := uint64(cur.Position())
			if offset > limit {
				return nil, fault.Rangef("sprite %d offset %d does not fit a %d-byte entry", i+1, offset, w)
			}
			offsets[i] = uint32(offset)
			cur.WriteBytes(ColorKey[:])
			cur.WriteU16(uint16(len(block)))
			cur.WriteBytes(block)
		}
		if progress != nil {
			progress(i+1, count)
		}
	}
	end := cur.Position()

	if err := cur.SetPosition(table); err != nil {
		return nil, err
	}
	for _, offset := range offsets {
		c.writeEntry(cur, offset)
	}
	return cur.Bytes()[:end], nil
}

func (c *Codec) writeEntry(cur *bytecursor.Cursor, v uint32) {
	if c.Version.Features.Extended {
		cur.WriteU32(v)
	} else {
		cur.WriteU16(uint16(v))
	}
}
