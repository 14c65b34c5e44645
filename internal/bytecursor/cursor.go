// Package bytecursor provides a growable little-endian byte buffer with a
// movable read/write position.
package bytecursor

import (
	"encoding/binary"

	"github.com/thingforge/thingforge/internal/fault"
	"golang.org/x/text/encoding/charmap"
)

// Cursor wraps a byte slice with an independent position. Reads advance the
// position and fail with fault.ErrOutOfData past the end; writes overwrite
// in place and grow the buffer when they run past it.
type Cursor struct {
	buf     []byte
	pos     int
	charset *charmap.Charmap
}

// New returns a cursor positioned at the start of data. The cursor takes
// ownership of data.
func New(data []byte) *Cursor {
	return &Cursor{buf: data, charset: charmap.ISO8859_1}
}

// NewWriter returns an empty cursor with the given capacity reserved.
func NewWriter(capacity int) *Cursor {
	return &Cursor{buf: make([]byte, 0, capacity), charset: charmap.ISO8859_1}
}

// SetCharset replaces the single-byte charset used by ReadText/WriteText.
func (c *Cursor) SetCharset(cm *charmap.Charmap) {
	c.charset = cm
}

// Bytes returns the whole underlying buffer.
func (c *Cursor) Bytes() []byte { return c.buf }

// Len returns the buffer length.
func (c *Cursor) Len() int { return len(c.buf) }

// Position returns the current offset.
func (c *Cursor) Position() int { return c.pos }

// Remaining returns the number of bytes left to read.
func (c *Cursor) Remaining() int {
	if c.pos >= len(c.buf) {
		return 0
	}
	return len(c.buf) - c.pos
}

// SetPosition moves the cursor. Positions past the end are allowed; the gap
// is zero-filled by the next write and unreadable until then.
func (c *Cursor) SetPosition(pos int) error {
	if pos < 0 {
		return fault.Rangef("negative cursor position %d", pos)
	}
	c.pos = pos
	return nil
}

// Skip advances the position by n readable bytes.
func (c *Cursor) Skip(n int) error {
	if _, err := c.take(n); err != nil {
		return err
	}
	return nil
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fault.OutOfDataf("need %d bytes at offset %d, have %d", n, c.pos, c.Remaining())
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// reserve makes n bytes writable at the current position and advances past
// them, growing the buffer when needed.
func (c *Cursor) reserve(n int) []byte {
	end := c.pos + n
	if end > len(c.buf) {
		if end > cap(c.buf) {
			grown := make([]byte, len(c.buf), max(end, 2*cap(c.buf)))
			copy(grown, c.buf)
			c.buf = grown
		}
		tail := c.buf[len(c.buf):end]
		clear(tail)
		c.buf = c.buf[:end]
	}
	b := c.buf[c.pos:end]
	c.pos = end
	return b
}

// ReadU8 reads one unsigned byte.
func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads one signed byte.
func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

// ReadU16 reads a little-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadI16 reads a little-endian int16.
func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32 reads a little-endian int32.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadBytes returns a copy of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// WriteU8 writes one unsigned byte.
func (c *Cursor) WriteU8(v uint8) {
	c.reserve(1)[0] = v
}

// WriteI8 writes one signed byte.
func (c *Cursor) WriteI8(v int8) {
	c.WriteU8(uint8(v))
}

// WriteU16 writes a little-endian uint16.
func (c *Cursor) WriteU16(v uint16) {
	binary.LittleEndian.PutUint16(c.reserve(2), v)
}

// WriteI16 writes a little-endian int16.
func (c *Cursor) WriteI16(v int16) {
	c.WriteU16(uint16(v))
}

// WriteU32 writes a little-endian uint32.
func (c *Cursor) WriteU32(v uint32) {
	binary.LittleEndian.PutUint32(c.reserve(4), v)
}

// WriteI32 writes a little-endian int32.
func (c *Cursor) WriteI32(v int32) {
	c.WriteU32(uint32(v))
}

// WriteBytes writes b verbatim.
func (c *Cursor) WriteBytes(b []byte) {
	copy(c.reserve(len(b)), b)
}
