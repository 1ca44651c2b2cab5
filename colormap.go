package geoplot

import (
	"embed"
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

//go:embed colormaps/*.csv
var colormapFS embed.FS

// RGBA is a color with channels in [0, 1].
type RGBA struct {
	R, G, B, A float64
}

func (c RGBA) colorful() colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

// Colormap maps discrete indices produced by an ExtendedNorm to colors.
// Indices below zero use the under color, indices at or past the color
// count use the over color, and BadIndex uses the bad color.
type Colormap struct {
	Name   string
	colors []RGBA
	under  RGBA
	over   RGBA
	bad    RGBA
}

// NewListedColormap builds a colormap from an explicit color list. The
// under and over colors default to the first and last entries, the bad
// color to fully transparent.
func NewListedColormap(name string, colors []RGBA) (*Colormap, error) {
	if len(colors) == 0 {
		return nil, fmt.Errorf("colormap: %q has no colors", name)
	}
	cs := make([]RGBA, len(colors))
	copy(cs, colors)
	return &Colormap{
		Name:   name,
		colors: cs,
		under:  cs[0],
		over:   cs[len(cs)-1],
		bad:    RGBA{},
	}, nil
}

// GetColormap loads one of the built-in colormap tables by name.
func GetColormap(name string) (*Colormap, error) {
	tbl, err := ReadColormap(name)
	if err != nil {
		return nil, err
	}
	colors := make([]RGBA, len(tbl))
	for k, row := range tbl {
		colors[k] = RGBA{R: row[0], G: row[1], B: row[2], A: 1}
	}
	return NewListedColormap(name, colors)
}

// ReadColormap reads a built-in color table and returns its RGB rows with
// channels scaled to [0, 1).
func ReadColormap(name string) ([][3]float64, error) {
	raw, err := colormapFS.ReadFile("colormaps/" + name + ".csv")
	if err != nil {
		return nil, fmt.Errorf("colormap: unknown colormap %q: %w", name, err)
	}
	var out [][3]float64
	for ln, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("colormap: %s line %d: expected 3 fields, got %d", name, ln+1, len(parts))
		}
		var row [3]float64
		for k, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("colormap: %s line %d: %w", name, ln+1, err)
			}
			row[k] = float64(v) / 256
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("colormap: %s is empty", name)
	}
	return out, nil
}

// N returns the number of colors.
func (c *Colormap) N() int { return len(c.colors) }

// At resolves an index to a color, honoring the under, over and bad slots.
func (c *Colormap) At(idx int) RGBA {
	switch {
	case idx == BadIndex:
		return c.bad
	case idx < 0:
		return c.under
	case idx >= len(c.colors):
		return c.over
	}
	return c.colors[idx]
}

// SetUnder overrides the color used for indices below the range.
func (c *Colormap) SetUnder(col RGBA) { c.under = col }

// SetOver overrides the color used for indices above the range.
func (c *Colormap) SetOver(col RGBA) { c.over = col }

// SetBad overrides the color used for BadIndex (NaN data).
func (c *Colormap) SetBad(col RGBA) { c.bad = col }

// Sample returns a colormap resampled to n colors. When n matches the
// current size the color list is reused unchanged; otherwise colors are
// blended at evenly spaced positions along the map.
func (c *Colormap) Sample(n int) (*Colormap, error) {
	if n < 1 {
		return nil, fmt.Errorf("colormap: cannot sample %d colors", n)
	}
	out := &Colormap{
		Name:  c.Name,
		under: c.under,
		over:  c.over,
		bad:   c.bad,
	}
	if n == len(c.colors) {
		out.colors = c.colors
		return out, nil
	}
	out.colors = make([]RGBA, n)
	for k := 0; k < n; k++ {
		pos := 0.0
		if n > 1 {
			pos = float64(k) / float64(n-1) * float64(len(c.colors)-1)
		}
		i0 := int(pos)
		if i0 >= len(c.colors)-1 {
			out.colors[k] = c.colors[len(c.colors)-1]
			continue
		}
		t := pos - float64(i0)
		blended := c.colors[i0].colorful().BlendRgb(c.colors[i0+1].colorful(), t)
		out.colors[k] = RGBA{R: blended.R, G: blended.G, B: blended.B, A: 1}
	}
	return out, nil
}
