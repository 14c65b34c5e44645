// Package flags maps client versions to the property opcode tables used in
// thing records, and reads and writes property blocks.
package flags

import (
	"fmt"
	"sort"
)

// Property names one optional thing attribute independent of the opcode it
// has in any particular client generation.
type Property uint8

const (
	Ground Property = iota + 1
	GroundBorder
	OnBottom
	OnTop
	Container
	Stackable
	ForceUse
	MultiUse
	HasCharges
	Writable
	WritableOnce
	FluidContainer
	Fluid
	Unpassable
	Unmoveable
	BlockMissile
	BlockPathfind
	NoMoveAnimation
	Pickupable
	Hangable
	Vertical
	Horizontal
	Rotatable
	HasLight
	DontHide
	Translucent
	FloorChange
	HasOffset
	HasElevation
	LyingObject
	AnimateAlways
	MiniMap
	LensHelp
	FullGround
	IgnoreLook
	Cloth
	MarketItem
	DefaultAction
	Wrappable
	Unwrappable
	TopEffect
	Usable
)

var propertyNames = map[Property]string{
	Ground:          "ground",
	GroundBorder:    "groundBorder",
	OnBottom:        "onBottom",
	OnTop:           "onTop",
	Container:       "container",
	Stackable:       "stackable",
	ForceUse:        "forceUse",
	MultiUse:        "multiUse",
	HasCharges:      "hasCharges",
	Writable:        "writable",
	WritableOnce:    "writableOnce",
	FluidContainer:  "fluidContainer",
	Fluid:           "fluid",
	Unpassable:      "unpassable",
	Unmoveable:      "unmoveable",
	BlockMissile:    "blockMissile",
	BlockPathfind:   "blockPathfind",
	NoMoveAnimation: "noMoveAnimation",
	Pickupable:      "pickupable",
	Hangable:        "hangable",
	Vertical:        "vertical",
	Horizontal:      "horizontal",
	Rotatable:       "rotatable",
	HasLight:        "hasLight",
	DontHide:        "dontHide",
	Translucent:     "translucent",
	FloorChange:     "floorChange",
	HasOffset:       "hasOffset",
	HasElevation:    "hasElevation",
	LyingObject:     "lyingObject",
	AnimateAlways:   "animateAlways",
	MiniMap:         "miniMap",
	LensHelp:        "lensHelp",
	FullGround:      "fullGround",
	IgnoreLook:      "ignoreLook",
	Cloth:           "cloth",
	MarketItem:      "marketItem",
	DefaultAction:   "defaultAction",
	Wrappable:       "wrappable",
	Unwrappable:     "unwrappable",
	TopEffect:       "topEffect",
	Usable:          "usable",
}

var propertiesByName = func() map[string]Property {
	m := make(map[string]Property, len(propertyNames))
	for p, name := range propertyNames {
		m[name] = p
	}
	return m
}()

func (p Property) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("property(%d)", uint8(p))
}

// ParseProperty returns the property with the given name.
func ParseProperty(name string) (Property, error) {
	p, ok := propertiesByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown property %q", name)
	}
	return p, nil
}

// MarshalText encodes the property by name so it can key JSON objects.
func (p Property) MarshalText() ([]byte, error) {
	if _, ok := propertyNames[p]; !ok {
		return nil, fmt.Errorf("unknown property %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a property name.
func (p *Property) UnmarshalText(text []byte) error {
	parsed, err := ParseProperty(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Field is one element of a property payload.
type Field uint8

const (
	FieldU16 Field = iota + 1
	FieldI16
	FieldText
)

// shapes defines the payload of every property. Shapes are identical in
// every generation; only opcodes move.
var shapes = map[Property][]Field{
	Ground:        {FieldU16},
	Writable:      {FieldU16},
	WritableOnce:  {FieldU16},
	HasLight:      {FieldU16, FieldU16},
	HasOffset:     {FieldI16, FieldI16},
	HasElevation:  {FieldU16},
	MiniMap:       {FieldU16},
	LensHelp:      {FieldU16},
	Cloth:         {FieldU16},
	MarketItem:    {FieldU16, FieldU16, FieldU16, FieldText, FieldU16, FieldU16},
	DefaultAction: {FieldU16},
}

// Shape returns the payload fields of p.
func (p Property) Shape() []Field {
	return shapes[p]
}

// Value is a property payload. Numeric fields are stored in table order in
// Ints; the text field, when the shape has one, is stored in Text.
type Value struct {
	Ints []int32 `json:"ints,omitempty"`
	Text string  `json:"text,omitempty"`
}

// Set holds the properties of one thing, at most one value per property.
type Set map[Property]Value

// Has reports whether p is present.
func (s Set) Has(p Property) bool {
	_, ok := s[p]
	return ok
}

// Int returns the i-th numeric field of p.
func (s Set) Int(p Property, i int) (int32, bool) {
	v, ok := s[p]
	if !ok || i >= len(v.Ints) {
		return 0, false
	}
	return v.Ints[i], true
}

// Properties returns the keys of s in ascending enum order.
func (s Set) Properties() []Property {
	out := make([]Property, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a deep copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for p, v := range s {
		ints := make([]int32, len(v.Ints))
		copy(ints, v.Ints)
		out[p] = Value{Ints: ints, Text: v.Text}
	}
	return out
}
