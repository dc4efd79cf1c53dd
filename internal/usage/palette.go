package usage

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Color is a "#rrggbb" hex color.
type Color string

// RGB splits the color into its channels.
func (c Color) RGB() (r, g, b uint8) {
	if len(c) != 7 || c[0] != '#' {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(string(c[1:]), 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// Palette is a fixed set of colors generated once per session.
type Palette []Color

// NewPalette draws count colors uniformly from the 24-bit color space.
// Duplicates are possible and not filtered.
func NewPalette(count int) (Palette, error) {
	return newPalette(count, rand.Uint32N)
}

// NewSeededPalette is NewPalette with a deterministic source.
func NewSeededPalette(count int, seed uint64) (Palette, error) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return newPalette(count, r.Uint32N)
}

func newPalette(count int, draw func(uint32) uint32) (Palette, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPaletteSize, count)
	}
	p := make(Palette, count)
	for i := range p {
		p[i] = Color(fmt.Sprintf("#%06x", draw(1<<24)))
	}
	return p, nil
}

// At returns the color for a ranked position, cycling when position exceeds
// the palette size so a position always maps to the same color.
func (p Palette) At(position int) Color {
	if len(p) == 0 {
		return ""
	}
	i := position % len(p)
	if i < 0 {
		i += len(p)
	}
	return p[i]
}
