package flags

import (
	"fmt"
	"sort"

	"github.com/thingforge/thingforge/internal/fault"
)

// Sentinel terminates every property block.
const Sentinel byte = 0xFF

// Entry binds an opcode to a property in one table.
type Entry struct {
	Opcode   byte
	Property Property
}

// Fields returns the payload shape of the entry.
func (e Entry) Fields() []Field {
	return e.Property.Shape()
}

// Table is an immutable opcode table for one client generation.
type Table struct {
	name       string
	entries    []Entry
	byOpcode   map[byte]Entry
	byProperty map[Property]Entry
}

func newTable(name string, entries ...Entry) *Table {
	t := &Table{
		name:       name,
		entries:    make([]Entry, len(entries)),
		byOpcode:   make(map[byte]Entry, len(entries)),
		byProperty: make(map[Property]Entry, len(entries)),
	}
	copy(t.entries, entries)
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Opcode < t.entries[j].Opcode })

	for _, e := range t.entries {
		if e.Opcode == Sentinel {
			panic(fmt.Sprintf("flags: table %s uses the sentinel opcode", name))
		}
		if _, dup := t.byOpcode[e.Opcode]; dup {
			panic(fmt.Sprintf("flags: table %s repeats opcode 0x%02X", name, e.Opcode))
		}
		if _, dup := t.byProperty[e.Property]; dup {
			panic(fmt.Sprintf("flags: table %s repeats property %s", name, e.Property))
		}
		t.byOpcode[e.Opcode] = e
		t.byProperty[e.Property] = e
	}
	return t
}

// Name identifies the client range the table belongs to.
func (t *Table) Name() string { return t.name }

// Entries returns the table in ascending opcode order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup returns the entry for an opcode.
func (t *Table) Lookup(opcode byte) (Entry, bool) {
	e, ok := t.byOpcode[opcode]
	return e, ok
}

// Supports reports whether the table can represent p.
func (t *Table) Supports(p Property) bool {
	_, ok := t.byProperty[p]
	return ok
}

// Opcode returns the opcode of p in this table.
func (t *Table) Opcode(p Property) (byte, bool) {
	e, ok := t.byProperty[p]
	return e.Opcode, ok
}

// Filter returns a copy of s without the properties t cannot represent, and
// the properties that were dropped.
func (t *Table) Filter(s Set) (Set, []Property) {
	kept := make(Set, len(s))
	var dropped []Property
	for _, p := range s.Properties() {
		if t.Supports(p) {
			kept[p] = s[p]
		} else {
			dropped = append(dropped, p)
		}
	}
	return kept, dropped
}

func (t *Table) String() string { return t.name }

// ForVersion returns the table for a numeric client version.
func ForVersion(value uint16) (*Table, error) {
	switch {
	case value < 710:
		return nil, fault.Rangef("no flag table for client version %d", value)
	case value <= 730:
		return Gen1, nil
	case value <= 750:
		return Gen2, nil
	case value <= 772:
		return Gen3, nil
	case value <= 854:
		return Gen4, nil
	case value < 1010:
		return Gen5, nil
	default:
		return Gen6, nil
	}
}

// Tables returns every client generation table, oldest first.
func Tables() []*Table {
	return []*Table{Gen1, Gen2, Gen3, Gen4, Gen5, Gen6}
}
