package thing

import (
	"context"
	"fmt"
	"math"

	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/fault"
)

// Header is the metadata file header. Each category field stores the number
// of records of that category.
type Header struct {
	Signature uint32
	Items     uint16
	Outfits   uint16
	Effects   uint16
	Missiles  uint16
}

// Count returns the number of records of c.
func (h Header) Count(c Category) int {
	switch c {
	case Item:
		return int(h.Items)
	case Outfit:
		return int(h.Outfits)
	case Effect:
		return int(h.Effects)
	case Missile:
		return int(h.Missiles)
	}
	return 0
}

// Bounds returns the id range of c. An empty category has Last < First.
func (h Header) Bounds(c Category) Bounds {
	first := c.FirstID()
	return Bounds{First: first, Last: first + uint32(h.Count(c)) - 1}
}

// Total is the number of records in the file.
func (h Header) Total() int {
	n := 0
	for _, c := range Categories() {
		n += h.Count(c)
	}
	return n
}

// ProgressFunc receives the number of records handled so far.
type ProgressFunc func(done, total int)

// File is a decoded metadata file. Things of each category are stored in
// ascending id order starting at the category's first id.
type File struct {
	Signature uint32
	Things    map[Category][]*Thing
}

// NewFile returns a file without things.
func NewFile(signature uint32) *File {
	f := &File{Signature: signature, Things: make(map[Category][]*Thing, 4)}
	for _, c := range Categories() {
		f.Things[c] = nil
	}
	return f
}

// Header computes the header describing the things of f.
func (f *File) Header() (Header, error) {
	h := Header{Signature: f.Signature}
	for _, c := range Categories() {
		n := len(f.Things[c])
		if n > math.MaxUint16 {
			return Header{}, fault.Rangef("%d %ss do not fit the header", n, c)
		}
		switch c {
		case Item:
			h.Items = uint16(n)
		case Outfit:
			h.Outfits = uint16(n)
		case Effect:
			h.Effects = uint16(n)
		case Missile:
			h.Missiles = uint16(n)
		}
	}
	return h, nil
}

// Get returns the thing with the given id.
func (f *File) Get(c Category, id uint32) (*Thing, bool) {
	things := f.Things[c]
	first := c.FirstID()
	if id < first || id-first >= uint32(len(things)) {
		return nil, false
	}
	return things[id-first], true
}

func readHeader(cur *bytecursor.Cursor) (Header, error) {
	var h Header
	var err error
	if h.Signature, err = cur.ReadU32(); err != nil {
		return Header{}, err
	}
	for _, dst := range []*uint16{&h.Items, &h.Outfits, &h.Effects, &h.Missiles} {
		if *dst, err = cur.ReadU16(); err != nil {
			return Header{}, err
		}
	}
	return h, nil
}

// DecodeFile parses a whole metadata file. ctx is checked between records.
func (c *Codec) DecodeFile(ctx context.Context, data []byte, progress ProgressFunc) (*File, error) {
	cur := bytecursor.New(data)
	h, err := readHeader(cur)
	if err != nil {
		return nil, err
	}
	if want := c.Version.MetadataSignature; want != 0 && h.Signature != want {
		return nil, fault.Formatf("metadata signature %08X does not match client %s (%08X)", h.Signature, c.Version, want)
	}

	f := NewFile(h.Signature)
	total, done := h.Total(), 0
	for _, category := range Categories() {
		b := h.Bounds(category)
		things := make([]*Thing, 0, h.Count(category))
		for id := b.First; id < b.First+uint32(h.Count(category)); id++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			t, err := c.DecodeThing(cur, category, id)
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", category, id, err)
			}
			things = append(things, t)
			done++
			if progress != nil {
				progress(done, total)
			}
		}
		f.Things[category] = things
	}
	return f, nil
}

// EncodeFile serializes f. ctx is checked between records.
func (c *Codec) EncodeFile(ctx context.Context, f *File, progress ProgressFunc) ([]byte, error) {
	h, err := f.Header()
	if err != nil {
		return nil, err
	}

	cur := bytecursor.NewWriter(16 + h.Total()*32)
	cur.WriteU32(h.Signature)
	cur.WriteU16(h.Items)
	cur.WriteU16(h.Outfits)
	cur.WriteU16(h.Effects)
	cur.WriteU16(h.Missiles)

	total, done := h.Total(), 0
	for _, category := range Categories() {
		b := h.Bounds(category)
		for i, t := range f.Things[category] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if want := b.First + uint32(i); t.ID != want || t.Category != category {
				return nil, fault.Validationf("%s at position %d has id %d, want %d", t.Category, i, t.ID, want)
			}
			if err := c.EncodeThing(cur, t, b); err != nil {
				return nil, err
			}
			done++
			if progress != nil {
				progress(done, total)
			}
		}
	}
	return cur.Bytes(), nil
}
