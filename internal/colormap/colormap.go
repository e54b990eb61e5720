// SPDX-License-Identifier: MIT

// Package colormap provides the decibel-to-colour functions used to paint
// spectrograms. Each palette is a 256-entry lookup table built by blending
// hex colour stops in CIE L*a*b*, so perceived lightness rises steadily from
// the floor colour to the ceiling colour.
package colormap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"specview/internal/spectrogram"
)

const lutSize = 256

// Default is the palette used when none is configured.
const Default = "heat"

// Palette maps a clamped decibel range onto a fixed colour ramp.
type Palette struct {
	name string
	lut  [lutSize][3]uint8
}

var palettes = map[string]*Palette{
	"grayscale": mustPalette("grayscale", "#000000", "#ffffff"),
	"heat":      mustPalette("heat", "#000004", "#3b0f70", "#8c2981", "#de4968", "#fe9f6d", "#fcfdbf"),
	"viridis":   mustPalette("viridis", "#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"),
}

// NewPalette builds a palette from two or more hex colour stops, darkest
// first.
func NewPalette(name string, stops ...string) (*Palette, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("palette %q needs at least two colour stops", name)
	}

	colors := make([]colorful.Color, len(stops))
	for i, hex := range stops {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("palette %q stop %d: %w", name, i, err)
		}
		colors[i] = c
	}

	p := &Palette{name: name}
	segments := len(colors) - 1
	for i := range lutSize {
		pos := float64(i) / float64(lutSize-1) * float64(segments)
		seg := min(int(pos), segments-1)
		c := colors[seg].BlendLab(colors[seg+1], pos-float64(seg)).Clamped()
		r, g, b := c.RGB255()
		p.lut[i] = [3]uint8{r, g, b}
	}
	return p, nil
}

func mustPalette(name string, stops ...string) *Palette {
	p, err := NewPalette(name, stops...)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the palette's registered name.
func (p *Palette) Name() string {
	return p.name
}

// Map converts db into an opaque colour. Values at or beyond either bound
// return the first or last table entry; NaN maps to the floor.
func (p *Palette) Map(db, minDB, maxDB float64) (r, g, b, a uint8) {
	t := (db - minDB) / (maxDB - minDB)
	if !(t > 0) {
		t = 0
	} else if t > 1 {
		t = 1
	}
	c := p.lut[int(t*(lutSize-1)+0.5)]
	return c[0], c[1], c[2], 255
}

// ColorMap returns Map as a rasterizer colour map.
func (p *Palette) ColorMap() spectrogram.ColorMap {
	return p.Map
}

// ByName looks up a built-in palette, case-insensitively.
func ByName(name string) (*Palette, error) {
	p, ok := palettes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown colour map '%s' (available: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the built-in palettes in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
