package geoplot

import (
	"fmt"
	"math"
	"sort"
)

// Extend says which ends of a level range get a saturation bin.
type Extend string

const (
	ExtendNeither Extend = "neither"
	ExtendMin     Extend = "min"
	ExtendMax     Extend = "max"
	ExtendBoth    Extend = "both"
)

func validExtend(e Extend) bool {
	switch e {
	case ExtendNeither, ExtendMin, ExtendMax, ExtendBoth:
		return true
	}
	return false
}

// BadIndex is the index returned by ExtendedNorm for NaN input. Colormaps
// map it to their bad color.
const BadIndex = math.MinInt32

// ExtendedNorm buckets continuous values into discrete color bins along a
// set of level boundaries, with optional saturation bins below the first
// and/or above the last level.
//
// The mapping follows boundary-norm conventions: values below the first
// level map to -1 (under), values at or above the last level map to the
// color count (over), so a colormap can route them to dedicated under/over
// colors. When the color count exceeds the number of bins, bin indices are
// spread linearly over the color range with a truncating scale.
type ExtendedNorm struct {
	bounds  []float64 // levels plus the virtual extension bins
	vmin    float64   // first original level
	vmax    float64   // last original level
	ncolors int
	scale   float64
	interp  bool
}

// NewExtendedNorm builds a norm over strictly increasing levels. With
// extend min/both one virtual bin is prepended, with max/both one is
// appended; ncolors must cover all bins (virtual ones included) or exceed
// them, in which case indices are rescaled.
func NewExtendedNorm(levels []float64, ncolors int, extend Extend) (*ExtendedNorm, error) {
	if len(levels) < 2 {
		return nil, fmt.Errorf("norm: need at least 2 levels, got %d", len(levels))
	}
	for k := 1; k < len(levels); k++ {
		if !(levels[k] > levels[k-1]) {
			return nil, fmt.Errorf("norm: levels must be strictly increasing at position %d", k)
		}
	}
	if ncolors < 1 {
		return nil, fmt.Errorf("norm: ncolors must be at least 1, got %d", ncolors)
	}
	if !validExtend(extend) {
		return nil, fmt.Errorf("norm: unknown extend mode %q", extend)
	}

	bounds := make([]float64, 0, len(levels)+2)
	if extend == ExtendMin || extend == ExtendBoth {
		bounds = append(bounds, levels[0]-1)
	}
	bounds = append(bounds, levels...)
	if extend == ExtendMax || extend == ExtendBoth {
		bounds = append(bounds, levels[len(levels)-1]+1)
	}

	nbins := len(bounds) - 1
	if ncolors < nbins {
		return nil, fmt.Errorf("norm: %d colors cannot cover %d bins", ncolors, nbins)
	}

	n := &ExtendedNorm{
		bounds:  bounds,
		vmin:    levels[0],
		vmax:    levels[len(levels)-1],
		ncolors: ncolors,
	}
	if nbins != ncolors {
		n.interp = true
		n.scale = float64(ncolors-1) / float64(len(bounds)-2)
	}
	return n, nil
}

// VMin returns the first original level.
func (n *ExtendedNorm) VMin() float64 { return n.vmin }

// VMax returns the last original level.
func (n *ExtendedNorm) VMax() float64 { return n.vmax }

// N returns the color count the norm maps into.
func (n *ExtendedNorm) N() int { return n.ncolors }

// Apply maps a value to a color index. Out-of-range values are flagged with
// -1 (under) and N (over); NaN maps to BadIndex.
func (n *ExtendedNorm) Apply(v float64) int {
	if math.IsNaN(v) {
		return BadIndex
	}
	if v < n.vmin {
		return -1
	}
	if v >= n.vmax {
		return n.ncolors
	}
	// Count of boundaries <= v, minus one.
	idx := sort.Search(len(n.bounds), func(k int) bool { return n.bounds[k] > v }) - 1
	if idx < 0 {
		idx = 0
	}
	if n.interp {
		idx = int(float64(idx) * n.scale)
	}
	return idx
}

// ApplyAll maps a slice of values.
func (n *ExtendedNorm) ApplyAll(vs []float64) []int {
	out := make([]int, len(vs))
	for k, v := range vs {
		out[k] = n.Apply(v)
	}
	return out
}
