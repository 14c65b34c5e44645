// Package thing models the things stored in a client metadata file and
// encodes them for every supported client generation.
package thing

import "fmt"

// Category selects the id space a thing lives in.
type Category uint8

const (
	Item Category = iota + 1
	Outfit
	Effect
	Missile
)

// Categories lists the categories in metadata file order.
func Categories() []Category {
	return []Category{Item, Outfit, Effect, Missile}
}

func (c Category) String() string {
	switch c {
	case Item:
		return "item"
	case Outfit:
		return "outfit"
	case Effect:
		return "effect"
	case Missile:
		return "missile"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	return c >= Item && c <= Missile
}

// FirstID is the lowest id a thing of the category may have.
func (c Category) FirstID() uint32 {
	if c == Item {
		return 100
	}
	return 1
}

// ParseCategory accepts the lower case category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Bounds is an inclusive id range.
type Bounds struct {
	First uint32
	Last  uint32
}

// Contains reports whether id lies inside the range.
func (b Bounds) Contains(id uint32) bool {
	return id >= b.First && id <= b.Last
}
