package flags

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/fault"
)

func TestForVersion(t *testing.T) {
	tests := []struct {
		value uint16
		want  *Table
	}{
		{710, Gen1},
		{730, Gen1},
		{740, Gen2},
		{750, Gen2},
		{760, Gen3},
		{772, Gen3},
		{780, Gen4},
		{854, Gen4},
		{860, Gen5},
		{986, Gen5},
		{1010, Gen6},
		{1098, Gen6},
	}
	for _, tt := range tests {
		got, err := ForVersion(tt.value)
		require.NoError(t, err)
		assert.Same(t, tt.want, got, "value %d", tt.value)
	}

	_, err := ForVersion(650)
	assert.ErrorIs(t, err, fault.ErrRange)
}

func TestTablesAreOneToOne(t *testing.T) {
	for _, table := range append(Tables(), Exchange) {
		seen := map[Property]bool{}
		for _, e := range table.Entries() {
			assert.False(t, seen[e.Property], "%s: %s repeated", table.Name(), e.Property)
			seen[e.Property] = true
			got, ok := table.Lookup(e.Opcode)
			require.True(t, ok)
			assert.Equal(t, e.Property, got.Property)
		}
	}
}

func TestExchangeCoversEveryGeneration(t *testing.T) {
	for _, table := range Tables() {
		for _, e := range table.Entries() {
			assert.True(t, Exchange.Supports(e.Property), "%s missing %s", table.Name(), e.Property)
		}
	}
}

func TestEncodeAscendingOpcodes(t *testing.T) {
	set := Set{
		Pickupable: {},
		Ground:     {Ints: []int32{150}},
		Container:  {},
	}

	c := bytecursor.NewWriter(0)
	require.NoError(t, Gen5.EncodeBlock(c, set))

	assert.Equal(t, []byte{
		0x00, 0x96, 0x00, // ground speed 150
		0x04,       // container
		0x10,       // pickupable
		Sentinel,
	}, c.Bytes())
}

func TestBlockRoundTripEveryGeneration(t *testing.T) {
	for _, table := range append(Tables(), Exchange) {
		set := Set{}
		for _, e := range table.Entries() {
			var v Value
			for _, f := range e.Fields() {
				switch f {
				case FieldU16:
					v.Ints = append(v.Ints, 7)
				case FieldI16:
					v.Ints = append(v.Ints, -3)
				case FieldText:
					v.Text = "Magic Sword"
				}
			}
			set[e.Property] = v
		}

		c := bytecursor.NewWriter(0)
		require.NoError(t, table.EncodeBlock(c, set), table.Name())

		got, err := table.DecodeBlock(bytecursor.New(c.Bytes()))
		require.NoError(t, err, table.Name())
		assert.Equal(t, set, got, table.Name())
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, err := Gen1.DecodeBlock(bytecursor.New([]byte{0x02, 0x30, Sentinel}))

	var unknown *fault.UnknownOpcodeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, byte(0x30), unknown.Opcode)
	assert.ErrorIs(t, err, fault.ErrFormat)
}

func TestDecodeRepeatedOpcode(t *testing.T) {
	_, err := Gen5.DecodeBlock(bytecursor.New([]byte{0x04, 0x04, Sentinel}))
	assert.ErrorIs(t, err, fault.ErrFormat)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Gen5.DecodeBlock(bytecursor.New([]byte{0x00, 0x01}))
	assert.ErrorIs(t, err, fault.ErrOutOfData)
}

func TestEncodeRejects(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		want error
	}{
		{"unsupported", Set{Usable: {}}, fault.ErrValidation},
		{"missing field", Set{HasLight: {Ints: []int32{1}}}, fault.ErrValidation},
		{"extra field", Set{Container: {Ints: []int32{1}}}, fault.ErrValidation},
		{"u16 overflow", Set{Ground: {Ints: []int32{70000}}}, fault.ErrRange},
		{"i16 overflow", Set{HasOffset: {Ints: []int32{0, 40000}}}, fault.ErrRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bytecursor.NewWriter(0)
			err := Gen4.EncodeBlock(c, tt.set)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, c.Len())
		})
	}
}

func TestFilter(t *testing.T) {
	kept, dropped := Gen1.Filter(Set{Usable: {}, Ground: {Ints: []int32{100}}, Cloth: {Ints: []int32{2}}})
	assert.Equal(t, Set{Ground: {Ints: []int32{100}}}, kept)
	assert.Equal(t, []Property{Cloth, Usable}, dropped)
}

func TestPropertyJSONKeys(t *testing.T) {
	raw, err := json.Marshal(Set{HasLight: {Ints: []int32{3, 215}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hasLight":{"ints":[3,215]}}`, string(raw))

	var back Set
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, []int32{3, 215}, back[HasLight].Ints)

	assert.Error(t, json.Unmarshal([]byte(`{"bogus":{}}`), &back))
}
