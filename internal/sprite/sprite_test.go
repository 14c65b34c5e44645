package sprite

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thingforge/thingforge/internal/client"
	"github.com/thingforge/thingforge/internal/fault"
)

// pattern fills every third pixel and leaves the rest transparent.
func pattern(seed byte, transparency bool) []byte {
	px := make([]byte, PixelBytes)
	for i := 0; i < PixelCount; i++ {
		if i%3 != 0 {
			continue
		}
		px[i*4] = seed
		px[i*4+1] = byte(i)
		px[i*4+2] = byte(i >> 8)
		px[i*4+3] = 0xFF
		if transparency {
			px[i*4+3] = byte(1 + i%254)
		}
	}
	return px
}

func TestCompressRoundTrip(t *testing.T) {
	for _, transparency := range []bool{false, true} {
		px := pattern(7, transparency)
		block, err := Compress(px, transparency)
		require.NoError(t, err)

		back, err := Decompress(block, transparency)
		require.NoError(t, err)
		assert.Equal(t, px, back)
	}
}

func TestCompressOpaqueDropsPartialAlpha(t *testing.T) {
	px := make([]byte, PixelBytes)
	copy(px[0:4], []byte{10, 20, 30, 128})
	copy(px[4:8], []byte{40, 50, 60, 0})

	block, err := Compress(px, false)
	require.NoError(t, err)
	back, err := Decompress(block, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 255}, back[0:4])
	assert.Equal(t, []byte{0, 0, 0, 0}, back[4:8])
}

func TestCompressLayout(t *testing.T) {
	px := make([]byte, PixelBytes)
	// two transparent pixels, then one red pixel, rest transparent
	copy(px[8:12], []byte{0xFF, 0, 0, 0xFF})

	block, err := Compress(px, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00, 0x01, 0x00, 0xFF, 0x00, 0x00}, block)

	block, err = Compress(make([]byte, PixelBytes), false)
	require.NoError(t, err)
	assert.Empty(t, block)
}

func TestDecompressRejects(t *testing.T) {
	_, err := Decompress([]byte{0x00, 0x04, 0x01, 0x00, 1, 2, 3}, false)
	assert.ErrorIs(t, err, fault.ErrFormat)

	_, err = Decompress([]byte{0x00, 0x00, 0x02, 0x00, 1, 2, 3}, false)
	assert.ErrorIs(t, err, fault.ErrOutOfData)

	_, err = Decompress([]byte{0x00}, false)
	assert.ErrorIs(t, err, fault.ErrOutOfData)
}

func TestFromPixelsLength(t *testing.T) {
	_, err := FromPixels(1, make([]byte, 10))
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func buildSheet(t *testing.T, transparency bool) *Sheet {
	t.Helper()
	s := NewSheet(0x4C220594)
	_, err := s.Append(pattern(1, transparency))
	require.NoError(t, err)
	_, err = s.Append(make([]byte, PixelBytes))
	require.NoError(t, err)
	_, err = s.Append(pattern(2, transparency))
	require.NoError(t, err)
	return s
}

func TestSheetRoundTrip(t *testing.T) {
	for _, features := range []client.Features{
		{},
		{Extended: true},
		{Extended: true, Transparency: true},
	} {
		c := &Codec{Version: client.Version{Value: 1010, Features: features}}
		sheet := buildSheet(t, features.Transparency)

		data, err := c.EncodeSheet(context.Background(), sheet, nil)
		require.NoError(t, err)

		back, err := c.DecodeSheet(context.Background(), data, nil)
		require.NoError(t, err)
		require.Equal(t, sheet.Count(), back.Count())
		for i := range sheet.Sprites {
			assert.True(t, sheet.Sprites[i].Equal(back.Sprites[i]), "sprite %d", i+1)
			assert.Equal(t, uint32(i+1), back.Sprites[i].ID)
		}
	}
}

func TestOffsetEntryWidth(t *testing.T) {
	sheet := buildSheet(t, false)

	narrow := &Codec{Version: client.Version{Value: 860}}
	data, err := narrow.EncodeSheet(context.Background(), sheet, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(data[4:]))
	first := binary.LittleEndian.Uint16(data[6:])
	assert.Equal(t, uint16(4+2+3*2), first)
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[8:]))

	wide := &Codec{Version: client.Version{Value: 960, Features: client.Features{Extended: true}}}
	data, err = wide.EncodeSheet(context.Background(), sheet, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, uint32(4+4+3*4), binary.LittleEndian.Uint32(data[8:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(data[12:]))
}

func TestNarrowOffsetOverflow(t *testing.T) {
	sheet := NewSheet(1)
	for i := 0; i < 40; i++ {
		_, err := sheet.Append(pattern(byte(i), false))
		require.NoError(t, err)
	}

	c := &Codec{Version: client.Version{Value: 860}}
	_, err := c.EncodeSheet(context.Background(), sheet, nil)
	assert.ErrorIs(t, err, fault.ErrRange)
}

func TestDecodeSignatureMismatch(t *testing.T) {
	c := &Codec{Version: client.Version{Value: 860, SpritesSignature: 0x4C220594}}
	_, err := c.DecodeSheet(context.Background(), []byte{1, 0, 0, 0, 0, 0}, nil)
	assert.ErrorIs(t, err, fault.ErrFormat)
}

func TestSheetCancellationAndProgress(t *testing.T) {
	c := &Codec{Version: client.Version{Value: 860}}
	data, err := c.EncodeSheet(context.Background(), buildSheet(t, false), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var seen []int
	_, err = c.DecodeSheet(ctx, data, func(done, total int) {
		seen = append(seen, done)
		if done == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestSheetGet(t *testing.T) {
	s := buildSheet(t, false)
	sp, ok := s.Get(2)
	require.True(t, ok)
	assert.True(t, sp.IsEmpty())

	_, ok = s.Get(0)
	assert.False(t, ok)
	_, ok = s.Get(4)
	assert.False(t, ok)
}
