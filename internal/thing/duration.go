package thing

import (
	"math/rand"

	"github.com/thingforge/thingforge/internal/fault"
)

// FrameDuration is the display time range of one animation frame, in
// milliseconds.
type FrameDuration struct {
	Minimum uint32 `json:"minimum"`
	Maximum uint32 `json:"maximum"`
}

// NewFrameDuration rejects a range whose minimum exceeds its maximum.
func NewFrameDuration(minimum, maximum uint32) (FrameDuration, error) {
	d := FrameDuration{Minimum: minimum, Maximum: maximum}
	if err := d.Validate(); err != nil {
		return FrameDuration{}, err
	}
	return d, nil
}

// FixedDuration returns a range holding a single value.
func FixedDuration(ms uint32) FrameDuration {
	return FrameDuration{Minimum: ms, Maximum: ms}
}

// Validate checks the minimum <= maximum invariant for values built without
// NewFrameDuration, such as decoded ones.
func (d FrameDuration) Validate() error {
	if d.Minimum > d.Maximum {
		return fault.Validationf("frame duration minimum %d exceeds maximum %d", d.Minimum, d.Maximum)
	}
	return nil
}

// Sample returns a uniformly distributed duration in [Minimum, Maximum].
func (d FrameDuration) Sample() uint32 {
	if d.Minimum >= d.Maximum {
		return d.Minimum
	}
	span := uint64(d.Maximum-d.Minimum) + 1
	return d.Minimum + uint32(rand.Int63n(int64(span)))
}

// Defaults holds the duration assigned to frames whose file carries none.
type Defaults map[Category]FrameDuration

// StandardDefaults mirrors the durations the original clients animate with.
func StandardDefaults() Defaults {
	return Defaults{
		Item:    FixedDuration(500),
		Outfit:  FixedDuration(300),
		Effect:  FixedDuration(100),
		Missile: FixedDuration(100),
	}
}

// For returns the default for c.
func (d Defaults) For(c Category) FrameDuration {
	if v, ok := d[c]; ok {
		return v
	}
	return StandardDefaults()[c]
}

// Fill returns n copies of the default for c.
func (d Defaults) Fill(c Category, n int) []FrameDuration {
	out := make([]FrameDuration, n)
	v := d.For(c)
	for i := range out {
		out[i] = v
	}
	return out
}
