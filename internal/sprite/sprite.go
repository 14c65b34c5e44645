// Package sprite reads and writes the client sprite sheet and its run-length
// compressed sprite blocks.
package sprite

import (
	"bytes"

	"github.com/thingforge/thingforge/internal/fault"
)

const (
	// Size is the edge of every sprite in pixels.
	Size = 32
	// PixelCount is the number of pixels in one sprite.
	PixelCount = Size * Size
	// PixelBytes is the RGBA buffer length of one sprite.
	PixelBytes = PixelCount * 4
)

// ColorKey is written in front of every compressed block. Readers ignore it.
var ColorKey = [3]byte{0xFF, 0x00, 0xFF}

// Sprite is one 32x32 tile stored as RGBA bytes.
type Sprite struct {
	ID     uint32
	Pixels []byte
}

// New returns a fully transparent sprite.
func New(id uint32) *Sprite {
	return &Sprite{ID: id, Pixels: make([]byte, PixelBytes)}
}

// FromPixels validates the buffer length and copies it.
func FromPixels(id uint32, pixels []byte) (*Sprite, error) {
	if len(pixels) != PixelBytes {
		return nil, fault.Validationf("sprite %d has %d pixel bytes, want %d", id, len(pixels), PixelBytes)
	}
	return &Sprite{ID: id, Pixels: bytes.Clone(pixels)}, nil
}

// IsEmpty reports whether every pixel is fully transparent.
func (s *Sprite) IsEmpty() bool {
	for i := 3; i < len(s.Pixels); i += 4 {
		if s.Pixels[i] != 0 {
			return false
		}
	}
	return true
}

// Clone returns a copy of s with its own buffer.
func (s *Sprite) Clone() *Sprite {
	return &Sprite{ID: s.ID, Pixels: bytes.Clone(s.Pixels)}
}

// Equal compares pixel content only.
func (s *Sprite) Equal(other *Sprite) bool {
	return bytes.Equal(s.Pixels, other.Pixels)
}

func transparent(pixels []byte, i int) bool {
	return pixels[i*4+3] == 0
}

// Compress run-length encodes an RGBA buffer. Each run is a transparent
// pixel count, a colored pixel count and the colored pixels, RGB or RGBA
// depending on transparency. A trailing transparent run is not written.
// Without transparency only alpha 0 survives: partial alpha decodes as 255
// and the color of fully transparent pixels is lost.
func Compress(pixels []byte, transparency bool) ([]byte, error) {
	if len(pixels) != PixelBytes {
		return nil, fault.Validationf("sprite buffer has %d bytes, want %d", len(pixels), PixelBytes)
	}

	channels := 3
	if transparency {
		channels = 4
	}

	var out bytes.Buffer
	i := 0
	for i < PixelCount {
		skipped := 0
		for i < PixelCount && transparent(pixels, i) {
			skipped++
			i++
		}
		if i == PixelCount {
			break
		}

		start := i
		for i < PixelCount && !transparent(pixels, i) {
			i++
		}
		colored := i - start

		out.Write([]byte{byte(skipped), byte(skipped >> 8), byte(colored), byte(colored >> 8)})
		for p := start; p < i; p++ {
			out.Write(pixels[p*4 : p*4+channels])
		}
	}
	return out.Bytes(), nil
}

// Decompress expands a compressed block into an RGBA buffer. Transparent
// runs become zero pixels; without transparency colored pixels get alpha
// 255.
func Decompress(data []byte, transparency bool) ([]byte, error) {
	channels := 3
	if transparency {
		channels = 4
	}

	pixels := make([]byte, PixelBytes)
	p, r := 0, 0
	for r < len(data) {
		if len(data)-r < 4 {
			return nil, fault.OutOfDataf("truncated run header at %d", r)
		}
		skipped := int(data[r]) | int(data[r+1])<<8
		colored := int(data[r+2]) | int(data[r+3])<<8
		r += 4

		p += skipped
		if p+colored > PixelCount {
			return nil, fault.Formatf("sprite runs cover %d pixels, max %d", p+colored, PixelCount)
		}
		if len(data)-r < colored*channels {
			return nil, fault.OutOfDataf("run needs %d pixel bytes, have %d", colored*channels, len(data)-r)
		}
		for n := 0; n < colored; n++ {
			dst := pixels[p*4 : p*4+4]
			copy(dst, data[r:r+channels])
			if !transparency {
				dst[3] = 0xFF
			}
			r += channels
			p++
		}
	}
	return pixels, nil
}
