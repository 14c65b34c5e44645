// Package imaging turns sprite pixel buffers into images and back.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/fileutil"
	"github.com/thingforge/thingforge/internal/sprite"
	"github.com/thingforge/thingforge/internal/thing"
)

// Encoder writes an image in one raster format.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
	Ext() string
}

// PNG is the default encoder.
type PNG struct {
	Level png.CompressionLevel
}

func (p PNG) Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: p.Level}
	return enc.Encode(w, img)
}

func (PNG) Ext() string { return ".png" }

// SpriteImage wraps a sprite buffer without copying. The buffer is straight
// alpha RGBA, which is what NRGBA stores.
func SpriteImage(pixels []byte) *image.NRGBA {
	return &image.NRGBA{
		Pix:    pixels,
		Stride: sprite.Size * 4,
		Rect:   image.Rect(0, 0, sprite.Size, sprite.Size),
	}
}

// Pixels converts a 32x32 image to a sprite buffer.
func Pixels(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() != sprite.Size || b.Dy() != sprite.Size {
		return nil, fault.Validationf("image is %dx%d, sprites are %dx%d", b.Dx(), b.Dy(), sprite.Size, sprite.Size)
	}
	out := image.NewNRGBA(image.Rect(0, 0, sprite.Size, sprite.Size))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out.Pix, nil
}

// Decode reads an image and converts it to a sprite buffer.
func Decode(r io.Reader) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fault.Formatf("decode image: %v", err)
	}
	return Pixels(img)
}

// ReadFile decodes the image at path into a sprite buffer.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// SpriteLookup returns the pixels of a sprite id, or false for blank ones.
type SpriteLookup func(id uint32) ([]byte, bool)

// Preview renders one frame of a frame group with every layer drawn over
// the previous one. Tiles are laid out from the bottom right corner, the way
// the client draws multi-tile things.
func Preview(g *thing.FrameGroup, lookup SpriteLookup, frame int) *image.NRGBA {
	w, h := int(g.Width), int(g.Height)
	img := image.NewNRGBA(image.Rect(0, 0, w*sprite.Size, h*sprite.Size))
	if frame >= int(g.Frames) {
		frame = 0
	}
	for layer := 0; layer < int(g.Layers); layer++ {
		for ty := 0; ty < h; ty++ {
			for tx := 0; tx < w; tx++ {
				idx := g.SpriteIndex(tx, ty, layer, 0, 0, 0, frame)
				if idx >= len(g.SpriteIDs) {
					continue
				}
				pixels, ok := lookup(g.SpriteIDs[idx])
				if !ok {
					continue
				}
				at := image.Pt((w-1-tx)*sprite.Size, (h-1-ty)*sprite.Size)
				r := image.Rectangle{Min: at, Max: at.Add(image.Pt(sprite.Size, sprite.Size))}
				draw.Draw(img, r, SpriteImage(pixels), image.Point{}, draw.Over)
			}
		}
	}
	return img
}

// ProgressFunc receives the number of images written so far.
type ProgressFunc func(done, total int)

// ExportSprites writes one file per sprite into dir and returns the paths.
func ExportSprites(ctx context.Context, dir string, sprites []*sprite.Sprite, enc Encoder, progress ProgressFunc) ([]string, error) {
	if enc == nil {
		enc = PNG{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	paths := make([]string, 0, len(sprites))
	for i, sp := range sprites {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		var buf bytes.Buffer
		if err := enc.Encode(&buf, SpriteImage(sp.Pixels)); err != nil {
			return paths, fmt.Errorf("encode sprite %d: %w", sp.ID, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("sprite_%d%s", sp.ID, enc.Ext()))
		if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		if progress != nil {
			progress(i+1, len(sprites))
		}
	}
	return paths, nil
}
