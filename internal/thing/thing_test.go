package thing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/client"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/flags"
)

func codecFor(t *testing.T, value uint16, features client.Features) *Codec {
	t.Helper()
	c, err := NewCodec(client.Version{Value: value, Features: features}, nil)
	require.NoError(t, err)
	return c
}

func TestFrameDuration(t *testing.T) {
	_, err := NewFrameDuration(300, 200)
	assert.ErrorIs(t, err, fault.ErrValidation)

	fixed, err := NewFrameDuration(250, 250)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		assert.Equal(t, uint32(250), fixed.Sample())
	}

	ranged, err := NewFrameDuration(100, 120)
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		v := ranged.Sample()
		assert.GreaterOrEqual(t, v, uint32(100))
		assert.LessOrEqual(t, v, uint32(120))
	}

	wide := FrameDuration{Minimum: 0, Maximum: ^uint32(0)}
	_ = wide.Sample()
}

func TestDefaultsFill(t *testing.T) {
	d := Defaults{Item: FixedDuration(42)}
	assert.Equal(t, []FrameDuration{FixedDuration(42), FixedDuration(42)}, d.Fill(Item, 2))
	assert.Equal(t, FixedDuration(300), d.For(Outfit))
}

// One item, no properties, a single 1x1x1x1 group using sprite 5.
func TestSingleItemScenario(t *testing.T) {
	data := []byte{
		0x93, 0x79, 0x2C, 0x4C, // signature
		0x01, 0x00, // items
		0x00, 0x00, // outfits
		0x00, 0x00, // effects
		0x00, 0x00, // missiles
		0xFF,                               // no properties
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, // width height layers px py pz
		0x01,       // frames
		0x05, 0x00, // sprite 5
	}

	c := codecFor(t, 860, client.Features{})
	f, err := c.DecodeFile(context.Background(), data, nil)
	require.NoError(t, err)

	require.Len(t, f.Things[Item], 1)
	assert.Empty(t, f.Things[Outfit])
	item := f.Things[Item][0]
	assert.Equal(t, uint32(100), item.ID)
	assert.Empty(t, item.Properties)
	require.Len(t, item.Groups, 1)
	g := item.Groups[0]
	assert.Equal(t, 1, g.SpriteCount())
	assert.Equal(t, []uint32{5}, g.SpriteIDs)
	assert.Nil(t, g.Durations)

	out, err := c.EncodeFile(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func sampleThing(category Category, id uint32, table *flags.Table, frames uint8) *Thing {
	props := flags.Set{}
	for _, e := range table.Entries() {
		switch e.Property {
		case flags.Ground:
			props[e.Property] = flags.Value{Ints: []int32{150}}
		case flags.HasLight:
			props[e.Property] = flags.Value{Ints: []int32{7, 215}}
		case flags.HasOffset:
			props[e.Property] = flags.Value{Ints: []int32{-8, 8}}
		case flags.MarketItem:
			props[e.Property] = flags.Value{Ints: []int32{1, 2, 3, 4, 5}, Text: "Sword"}
		case flags.Pickupable, flags.Stackable:
			props[e.Property] = flags.Value{}
		}
	}

	g := FrameGroup{
		Width: 2, Height: 2, ExactSize: 64, Layers: 1,
		PatternX: 2, PatternY: 1, PatternZ: 1, Frames: frames,
	}
	for i := 0; i < g.SpriteCount(); i++ {
		g.SpriteIDs = append(g.SpriteIDs, uint32(i+1))
	}
	return &Thing{ID: id, Category: category, Properties: props, Groups: []FrameGroup{g}}
}

func TestThingRoundTripEveryGeneration(t *testing.T) {
	versions := []struct {
		value    uint16
		features client.Features
	}{
		{710, client.Features{}},
		{740, client.Features{}},
		{760, client.Features{}},
		{854, client.Features{}},
		{860, client.Features{}},
		{1010, client.Features{Extended: true}},
		{1098, client.DefaultFeatures(1098)},
	}

	for _, v := range versions {
		c := codecFor(t, v.value, v.features)
		th := sampleThing(Item, 100, c.Table, 1)

		w := bytecursor.NewWriter(0)
		require.NoError(t, c.EncodeThing(w, th, Bounds{First: 100, Last: 100}), v.value)

		got, err := c.DecodeThing(bytecursor.New(w.Bytes()), Item, 100)
		require.NoError(t, err, v.value)
		assert.Equal(t, th, got, v.value)

		again := bytecursor.NewWriter(0)
		require.NoError(t, c.EncodeThing(again, got, Bounds{First: 100, Last: 100}))
		assert.Equal(t, w.Bytes(), again.Bytes(), v.value)
	}
}

func TestImprovedAnimationsRoundTrip(t *testing.T) {
	c := codecFor(t, 1050, client.Features{Extended: true, ImprovedAnimations: true})
	th := sampleThing(Effect, 1, c.Table, 2)
	th.Groups[0].AnimationMode = AnimationSync
	th.Groups[0].LoopCount = -1
	th.Groups[0].StartFrame = 1
	th.Groups[0].Durations = []FrameDuration{{100, 200}, FixedDuration(50)}

	w := bytecursor.NewWriter(0)
	require.NoError(t, c.EncodeThing(w, th, Bounds{First: 1, Last: 1}))

	got, err := c.DecodeThing(bytecursor.New(w.Bytes()), Effect, 1)
	require.NoError(t, err)
	assert.Equal(t, th, got)
}

func TestLegacyAnimationGetsDefaultDurations(t *testing.T) {
	c := codecFor(t, 860, client.Features{})
	th := sampleThing(Missile, 3, c.Table, 3)
	th.Groups[0].Durations = c.Durations.Fill(Missile, 3)

	w := bytecursor.NewWriter(0)
	require.NoError(t, c.EncodeThing(w, th, Bounds{First: 1, Last: 10}))

	got, err := c.DecodeThing(bytecursor.New(w.Bytes()), Missile, 3)
	require.NoError(t, err)
	assert.Equal(t, []FrameDuration{FixedDuration(100), FixedDuration(100), FixedDuration(100)}, got.Groups[0].Durations)
}

func TestOutfitFrameGroups(t *testing.T) {
	c := codecFor(t, 1098, client.DefaultFeatures(1098))
	th := New(Outfit, 1)
	walking := NewFrameGroup()
	walking.Type = GroupWalking
	walking.Frames = 2
	walking.SpriteIDs = []uint32{10, 11}
	walking.Durations = []FrameDuration{FixedDuration(300), {200, 400}}
	th.Groups = append(th.Groups, walking)

	w := bytecursor.NewWriter(0)
	require.NoError(t, c.EncodeThing(w, th, Bounds{First: 1, Last: 1}))
	got, err := c.DecodeThing(bytecursor.New(w.Bytes()), Outfit, 1)
	require.NoError(t, err)
	require.Len(t, got.Groups, 2)
	assert.Equal(t, GroupWalking, got.Groups[1].Type)
	assert.Equal(t, th, got)

	// items never carry a group list
	item := New(Item, 100)
	item.Groups = append(item.Groups, NewFrameGroup())
	err = c.EncodeThing(bytecursor.NewWriter(0), item, Bounds{First: 100, Last: 100})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestEncodeRejects(t *testing.T) {
	c := codecFor(t, 860, client.Features{})

	tests := []struct {
		name   string
		mutate func(*Thing)
		want   error
	}{
		{"id above bounds", func(th *Thing) { th.ID = 101 }, fault.ErrRange},
		{"id below bounds", func(th *Thing) { th.ID = 99 }, fault.ErrRange},
		{"short sprite list", func(th *Thing) { th.Groups[0].SpriteIDs = []uint32{} }, fault.ErrValidation},
		{"long sprite list", func(th *Thing) { th.Groups[0].SpriteIDs = []uint32{1, 2} }, fault.ErrValidation},
		{"inverted duration", func(th *Thing) {
			th.Groups[0].Frames = 2
			th.Groups[0].SpriteIDs = []uint32{1, 2}
			th.Groups[0].Durations = []FrameDuration{{300, 200}, {1, 1}}
		}, fault.ErrValidation},
		{"wide sprite id", func(th *Thing) { th.Groups[0].SpriteIDs = []uint32{70000} }, fault.ErrRange},
		{"unsupported property", func(th *Thing) { th.Properties[flags.Usable] = flags.Value{} }, fault.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := New(Item, 100)
			tt.mutate(th)
			w := bytecursor.NewWriter(0)
			assert.ErrorIs(t, c.EncodeThing(w, th, Bounds{First: 100, Last: 100}), tt.want)
			assert.Zero(t, w.Len())
		})
	}
}

func TestPatternZBeforeSupport(t *testing.T) {
	c := codecFor(t, 740, client.Features{})
	th := New(Item, 100)
	th.Groups[0].PatternZ = 2
	th.Groups[0].SpriteIDs = []uint32{0, 0}
	err := c.EncodeThing(bytecursor.NewWriter(0), th, Bounds{First: 100, Last: 100})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestDecodeFileSignatureMismatch(t *testing.T) {
	v, ok := client.Builtin().ByValue(860)
	require.True(t, ok)
	c, err := NewCodec(v, nil)
	require.NoError(t, err)

	_, err = c.DecodeFile(context.Background(), []byte{1, 2, 3, 4, 99, 0, 0, 0, 0, 0, 0, 0}, nil)
	assert.ErrorIs(t, err, fault.ErrFormat)
}

func TestDecodeFileCancelled(t *testing.T) {
	c := codecFor(t, 860, client.Features{})
	f := NewFile(1)
	for i := 0; i < 3; i++ {
		f.Things[Item] = append(f.Things[Item], New(Item, 100+uint32(i)))
	}
	data, err := c.EncodeFile(context.Background(), f, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err = c.DecodeFile(ctx, data, func(done, total int) {
		calls++
		assert.Equal(t, 3, total)
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestEncodeFileRejectsGaps(t *testing.T) {
	c := codecFor(t, 860, client.Features{})
	f := NewFile(1)
	f.Things[Outfit] = []*Thing{New(Outfit, 2)}
	_, err := c.EncodeFile(context.Background(), f, nil)
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestFileRoundTripAllCategories(t *testing.T) {
	c := codecFor(t, 1010, client.Features{Extended: true})
	f := NewFile(0xCAFE)
	for _, cat := range Categories() {
		for i := uint32(0); i < 2; i++ {
			f.Things[cat] = append(f.Things[cat], sampleThing(cat, cat.FirstID()+i, c.Table, 1))
		}
	}

	var last int
	data, err := c.EncodeFile(context.Background(), f, func(done, total int) { last = done })
	require.NoError(t, err)
	assert.Equal(t, 8, last)

	back, err := c.DecodeFile(context.Background(), data, nil)
	require.NoError(t, err)
	assert.Equal(t, f, back)

	h, err := back.Header()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), h.Items)
	assert.Equal(t, uint16(2), h.Missiles)

	got, ok := back.Get(Effect, 2)
	require.True(t, ok)
	assert.Equal(t, uint32(2), got.ID)
	_, ok = back.Get(Effect, 3)
	assert.False(t, ok)
}

func TestThingHelpers(t *testing.T) {
	th := New(Item, 100)
	assert.True(t, th.IsEmpty())

	th.Groups[0].Width = 2
	th.Groups[0].SpriteIDs = []uint32{4, 4}
	assert.False(t, th.IsEmpty())
	assert.Equal(t, []uint32{4}, th.SpriteIDs())

	clone := th.Clone()
	th.RemapSprites(map[uint32]uint32{4: 9})
	assert.Equal(t, []uint32{9, 9}, th.Groups[0].SpriteIDs)
	assert.Equal(t, []uint32{4, 4}, clone.Groups[0].SpriteIDs)

	g := FrameGroup{Width: 2, Height: 2, Layers: 2, PatternX: 1, PatternY: 1, PatternZ: 1, Frames: 1}
	assert.Equal(t, 0, g.SpriteIndex(0, 0, 0, 0, 0, 0, 0))
	assert.Equal(t, 3, g.SpriteIndex(1, 1, 0, 0, 0, 0, 0))
	assert.Equal(t, 4, g.SpriteIndex(0, 0, 1, 0, 0, 0, 0))
}

func TestCategoryText(t *testing.T) {
	raw, err := Outfit.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "outfit", string(raw))

	var c Category
	require.NoError(t, c.UnmarshalText([]byte("missile")))
	assert.Equal(t, Missile, c)
	assert.Error(t, c.UnmarshalText([]byte("npc")))
}
