package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/sprite"
	"github.com/thingforge/thingforge/internal/thing"
)

func solid(r, g, b, a byte) []byte {
	px := make([]byte, sprite.PixelBytes)
	for i := 0; i < len(px); i += 4 {
		px[i], px[i+1], px[i+2], px[i+3] = r, g, b, a
	}
	return px
}

func TestPNGRoundTrip(t *testing.T) {
	px := solid(10, 20, 30, 255)
	px[3] = 0 // first pixel transparent
	px[0], px[1], px[2] = 0, 0, 0

	var buf bytes.Buffer
	require.NoError(t, PNG{}.Encode(&buf, SpriteImage(px)))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, px, got)
}

func TestPixels_RejectsSize(t *testing.T) {
	_, err := Pixels(image.NewNRGBA(image.Rect(0, 0, 64, 32)))
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, err = Decode(bytes.NewReader([]byte("not an image")))
	assert.ErrorIs(t, err, fault.ErrFormat)
}

func TestPreview_TileLayout(t *testing.T) {
	g := thing.NewFrameGroup()
	g.Width = 2
	g.SpriteIDs = []uint32{1, 2}

	red, blue := solid(255, 0, 0, 255), solid(0, 0, 255, 255)
	lookup := func(id uint32) ([]byte, bool) {
		switch id {
		case 1:
			return red, true
		case 2:
			return blue, true
		}
		return nil, false
	}

	img := Preview(&g, lookup, 0)
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())
	// tile 0 is drawn rightmost
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(40, 5))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(5, 5))
}

func TestPreview_LayersBlend(t *testing.T) {
	g := thing.NewFrameGroup()
	g.Layers = 2
	g.SpriteIDs = []uint32{1, 0}

	img := Preview(&g, func(id uint32) ([]byte, bool) {
		if id == 1 {
			return solid(0, 255, 0, 255), true
		}
		return nil, false
	}, 3)
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(0, 0))
}

func TestExportSprites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sprites := []*sprite.Sprite{sprite.New(4), {ID: 9, Pixels: solid(1, 2, 3, 255)}}

	var calls int
	paths, err := ExportSprites(context.Background(), dir, sprites, nil, func(done, total int) {
		calls++
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Equal(t, []string{filepath.Join(dir, "sprite_4.png"), filepath.Join(dir, "sprite_9.png")}, paths)

	got, err := ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, sprites[1].Pixels, got)

	_, err = os.Stat(paths[0])
	assert.NoError(t, err)
}

func TestExportSprites_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	paths, err := ExportSprites(ctx, t.TempDir(), []*sprite.Sprite{sprite.New(1)}, PNG{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, paths)
}
