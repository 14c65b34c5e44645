package bytecursor

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/thingforge/thingforge/internal/fault"
)

// ReadString reads a u16-length-prefixed UTF-8 string.
func (c *Cursor) ReadString() (string, error) {
	n, err := c.ReadU16()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fault.Formatf("invalid UTF-8 string at offset %d", c.pos-int(n))
	}
	return string(b), nil
}

// WriteString writes s as a u16-length-prefixed UTF-8 string.
func (c *Cursor) WriteString(s string) error {
	if len(s) > math.MaxUint16 {
		return fault.Rangef("string of %d bytes exceeds u16 length prefix", len(s))
	}
	c.WriteU16(uint16(len(s)))
	c.WriteBytes([]byte(s))
	return nil
}

// ReadText reads a u16-length-prefixed string in the cursor's single-byte
// charset.
func (c *Cursor) ReadText() (string, error) {
	n, err := c.ReadU16()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for _, ch := range b {
		sb.WriteRune(c.charset.DecodeByte(ch))
	}
	return sb.String(), nil
}

// WriteText writes s as a u16-length-prefixed string in the cursor's
// single-byte charset. Runes the charset cannot represent become '?'.
func (c *Cursor) WriteText(s string) error {
	encoded := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := c.charset.EncodeRune(r)
		if !ok {
			b = '?'
		}
		encoded = append(encoded, b)
	}
	if len(encoded) > math.MaxUint16 {
		return fault.Rangef("text of %d bytes exceeds u16 length prefix", len(encoded))
	}
	c.WriteU16(uint16(len(encoded)))
	c.WriteBytes(encoded)
	return nil
}
