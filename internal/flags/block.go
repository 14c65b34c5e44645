package flags

import (
	"math"

	"github.com/thingforge/thingforge/internal/bytecursor"
	"github.com/thingforge/thingforge/internal/fault"
)

// DecodeBlock reads opcodes and their payloads until the sentinel.
func (t *Table) DecodeBlock(c *bytecursor.Cursor) (Set, error) {
	set := Set{}
	for {
		opcode, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		if opcode == Sentinel {
			return set, nil
		}

		entry, ok := t.Lookup(opcode)
		if !ok {
			return nil, &fault.UnknownOpcodeError{Opcode: opcode, Table: t.name}
		}
		if set.Has(entry.Property) {
			return nil, fault.Formatf("opcode 0x%02X (%s) repeated in block", opcode, entry.Property)
		}

		value, err := readValue(c, entry.Fields())
		if err != nil {
			return nil, err
		}
		set[entry.Property] = value
	}
}

func readValue(c *bytecursor.Cursor, fields []Field) (Value, error) {
	var v Value
	for _, f := range fields {
		switch f {
		case FieldU16:
			n, err := c.ReadU16()
			if err != nil {
				return Value{}, err
			}
			v.Ints = append(v.Ints, int32(n))
		case FieldI16:
			n, err := c.ReadI16()
			if err != nil {
				return Value{}, err
			}
			v.Ints = append(v.Ints, int32(n))
		case FieldText:
			s, err := c.ReadText()
			if err != nil {
				return Value{}, err
			}
			v.Text = s
		}
	}
	return v, nil
}

// EncodeBlock writes every property of s in ascending opcode order followed
// by the sentinel. Nothing is written when validation fails.
func (t *Table) EncodeBlock(c *bytecursor.Cursor, s Set) error {
	entries := make([]Entry, 0, len(s))
	for _, e := range t.entries {
		v, ok := s[e.Property]
		if !ok {
			continue
		}
		if err := validateValue(e, v); err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if len(entries) != len(s) {
		for _, p := range s.Properties() {
			if !t.Supports(p) {
				return fault.Validationf("property %s is not supported by table %s", p, t.name)
			}
		}
	}

	for _, e := range entries {
		c.WriteU8(e.Opcode)
		if err := writeValue(c, e.Fields(), s[e.Property]); err != nil {
			return err
		}
	}
	c.WriteU8(Sentinel)
	return nil
}

func validateValue(e Entry, v Value) error {
	numeric := 0
	for _, f := range e.Fields() {
		if f == FieldText {
			continue
		}
		if numeric >= len(v.Ints) {
			return fault.Validationf("property %s needs more numeric fields than %d", e.Property, len(v.Ints))
		}
		n := v.Ints[numeric]
		switch f {
		case FieldU16:
			if n < 0 || n > math.MaxUint16 {
				return fault.Rangef("property %s field %d value %d does not fit u16", e.Property, numeric, n)
			}
		case FieldI16:
			if n < math.MinInt16 || n > math.MaxInt16 {
				return fault.Rangef("property %s field %d value %d does not fit i16", e.Property, numeric, n)
			}
		}
		numeric++
	}
	if numeric != len(v.Ints) {
		return fault.Validationf("property %s takes %d numeric fields, got %d", e.Property, numeric, len(v.Ints))
	}
	return nil
}

func writeValue(c *bytecursor.Cursor, fields []Field, v Value) error {
	i := 0
	for _, f := range fields {
		switch f {
		case FieldU16:
			c.WriteU16(uint16(v.Ints[i]))
			i++
		case FieldI16:
			c.WriteI16(int16(v.Ints[i]))
			i++
		case FieldText:
			if err := c.WriteText(v.Text); err != nil {
				return err
			}
		}
	}
	return nil
}
