package geoplot

import (
	"fmt"
	"log/slog"
	"math"
)

const defaultNLevels = 256

// PlotParams carries the user-facing knobs of a DataLevels. Zero-valued
// fields keep their defaults.
type PlotParams struct {
	Levels  []float64
	NLevels int
	VMin    *float64
	VMax    *float64
	Extend  Extend
	Cmap    *Colormap
}

// DataLevels turns raw data values into discrete color levels. Levels can
// be given explicitly or derived from the value range and a level count,
// and the extend behavior is detected from the data when not forced.
type DataLevels struct {
	data    []float64
	levels  []float64
	nlevels int
	vmin    *float64
	vmax    *float64
	extend  Extend // empty means automatic
	cmap    *Colormap
}

// NewDataLevels builds a DataLevels from plot parameters.
func NewDataLevels(p PlotParams) (*DataLevels, error) {
	dl := &DataLevels{}
	if err := dl.SetPlotParams(p); err != nil {
		return nil, err
	}
	return dl, nil
}

// SetPlotParams resets every plot parameter to its default and then applies
// p. The data itself is kept.
func (dl *DataLevels) SetPlotParams(p PlotParams) error {
	dl.levels = nil
	dl.nlevels = defaultNLevels
	dl.vmin = nil
	dl.vmax = nil
	dl.extend = ""
	dl.cmap = nil

	if p.Levels != nil {
		if err := dl.SetLevels(p.Levels); err != nil {
			return err
		}
	}
	if p.NLevels != 0 {
		if err := dl.SetNLevels(p.NLevels); err != nil {
			return err
		}
	}
	if p.VMin != nil {
		dl.SetVMin(*p.VMin)
	}
	if p.VMax != nil {
		dl.SetVMax(*p.VMax)
	}
	if p.Extend != "" {
		if err := dl.SetExtend(p.Extend); err != nil {
			return err
		}
	}
	if p.Cmap != nil {
		dl.SetCmap(p.Cmap)
	}
	return nil
}

// SetData replaces the data values.
func (dl *DataLevels) SetData(data []float64) {
	dl.data = make([]float64, len(data))
	copy(dl.data, data)
}

// Data returns the current data values.
func (dl *DataLevels) Data() []float64 { return dl.data }

// SetLevels fixes the level boundaries explicitly. Levels take precedence
// over nlevels, vmin and vmax.
func (dl *DataLevels) SetLevels(levels []float64) error {
	if len(levels) < 2 {
		return fmt.Errorf("datalevels: need at least 2 levels, got %d", len(levels))
	}
	for k := 1; k < len(levels); k++ {
		if !(levels[k] > levels[k-1]) {
			return fmt.Errorf("datalevels: levels must be strictly increasing at position %d", k)
		}
	}
	dl.levels = make([]float64, len(levels))
	copy(dl.levels, levels)
	return nil
}

// SetNLevels sets the number of levels generated between vmin and vmax.
func (dl *DataLevels) SetNLevels(n int) error {
	if n < 2 {
		return fmt.Errorf("datalevels: nlevels must be at least 2, got %d", n)
	}
	dl.nlevels = n
	return nil
}

// SetVMin fixes the lower bound of the level range.
func (dl *DataLevels) SetVMin(v float64) { dl.vmin = &v }

// ClearVMin reverts the lower bound to the data minimum.
func (dl *DataLevels) ClearVMin() { dl.vmin = nil }

// SetVMax fixes the upper bound of the level range.
func (dl *DataLevels) SetVMax(v float64) { dl.vmax = &v }

// ClearVMax reverts the upper bound to the data maximum.
func (dl *DataLevels) ClearVMax() { dl.vmax = nil }

// SetCmap sets the colormap used by ToRGB.
func (dl *DataLevels) SetCmap(c *Colormap) { dl.cmap = c }

// SetExtend forces the extend behavior regardless of the data range.
func (dl *DataLevels) SetExtend(e Extend) error {
	if !validExtend(e) {
		return fmt.Errorf("datalevels: unknown extend mode %q", e)
	}
	dl.extend = e
	return nil
}

// SetExtendAuto reverts to detecting the extend behavior from the data.
func (dl *DataLevels) SetExtendAuto() { dl.extend = "" }

// Update applies a set of named parameter changes. Unknown keys are an
// error so typos do not silently change nothing.
func (dl *DataLevels) Update(params map[string]any) error {
	for key, val := range params {
		var err error
		switch key {
		case "data":
			v, ok := val.([]float64)
			if !ok {
				return fmt.Errorf("datalevels: data must be []float64, got %T", val)
			}
			dl.SetData(v)
		case "levels":
			v, ok := val.([]float64)
			if !ok {
				return fmt.Errorf("datalevels: levels must be []float64, got %T", val)
			}
			err = dl.SetLevels(v)
		case "nlevels":
			v, ok := val.(int)
			if !ok {
				return fmt.Errorf("datalevels: nlevels must be int, got %T", val)
			}
			err = dl.SetNLevels(v)
		case "vmin":
			v, ok := toFloat(val)
			if !ok {
				return fmt.Errorf("datalevels: vmin must be a number, got %T", val)
			}
			dl.SetVMin(v)
		case "vmax":
			v, ok := toFloat(val)
			if !ok {
				return fmt.Errorf("datalevels: vmax must be a number, got %T", val)
			}
			dl.SetVMax(v)
		case "extend":
			switch v := val.(type) {
			case Extend:
				err = dl.SetExtend(v)
			case string:
				err = dl.SetExtend(Extend(v))
			default:
				return fmt.Errorf("datalevels: extend must be a string, got %T", val)
			}
		case "cmap":
			switch v := val.(type) {
			case *Colormap:
				dl.SetCmap(v)
			case string:
				cm, cmErr := GetColormap(v)
				if cmErr != nil {
					return cmErr
				}
				dl.SetCmap(cm)
			default:
				return fmt.Errorf("datalevels: cmap must be a *Colormap or a name, got %T", val)
			}
		default:
			return fmt.Errorf("datalevels: unknown parameter %q", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}

// VMin returns the effective lower bound: the first explicit level if
// levels were set, then the forced vmin, then the data minimum, then 0.
func (dl *DataLevels) VMin() float64 {
	if dl.levels != nil {
		return dl.levels[0]
	}
	if dl.vmin != nil {
		return *dl.vmin
	}
	if mn, _, ok := dl.dataRange(); ok {
		return mn
	}
	return 0
}

// VMax returns the effective upper bound, mirroring VMin with a fallback
// of 1.
func (dl *DataLevels) VMax() float64 {
	if dl.levels != nil {
		return dl.levels[len(dl.levels)-1]
	}
	if dl.vmax != nil {
		return *dl.vmax
	}
	if _, mx, ok := dl.dataRange(); ok {
		return mx
	}
	return 1
}

// Levels returns the effective level boundaries.
func (dl *DataLevels) Levels() ([]float64, error) {
	if dl.levels != nil {
		out := make([]float64, len(dl.levels))
		copy(out, dl.levels)
		return out, nil
	}
	vmin, vmax := dl.VMin(), dl.VMax()
	if vmax < vmin {
		return nil, fmt.Errorf("datalevels: vmax %g below vmin %g", vmax, vmin)
	}
	n := dl.nlevels
	if n == 0 {
		// The zero value has never seen SetPlotParams.
		n = defaultNLevels
	}
	return linspace(vmin, vmax, n), nil
}

// Extend returns the effective extend behavior. When not forced it is
// detected from the data: values below vmin extend the min side, values
// above vmax the max side.
func (dl *DataLevels) Extend() Extend {
	if dl.extend != "" {
		return dl.extend
	}
	mn, mx, ok := dl.dataRange()
	if !ok {
		return ExtendNeither
	}
	below := mn < dl.VMin()
	above := mx > dl.VMax()
	switch {
	case below && above:
		return ExtendBoth
	case below:
		return ExtendMin
	case above:
		return ExtendMax
	}
	return ExtendNeither
}

// Norm builds the ExtendedNorm matching the current levels, extend mode
// and colormap size used by ToRGB.
func (dl *DataLevels) Norm() (*ExtendedNorm, error) {
	levels, err := dl.Levels()
	if err != nil {
		return nil, err
	}
	return NewExtendedNorm(levels, dl.binCount(levels), dl.Extend())
}

func (dl *DataLevels) binCount(levels []float64) int {
	n := len(levels) - 1
	switch dl.Extend() {
	case ExtendMin, ExtendMax:
		n++
	case ExtendBoth:
		n += 2
	}
	return n
}

// Cmap returns the effective colormap, loading the default when none was
// set.
func (dl *DataLevels) Cmap() (*Colormap, error) {
	if dl.cmap != nil {
		return dl.cmap, nil
	}
	cm, err := GetColormap("topo")
	if err != nil {
		return nil, err
	}
	dl.cmap = cm
	return cm, nil
}

// ToRGB converts the data to colors via the norm and the colormap,
// resampled so each level bin gets its own color. Data outside a range
// whose extend mode does not cover that side saturates into the edge
// color, with a warning.
func (dl *DataLevels) ToRGB() ([]RGBA, error) {
	if len(dl.data) == 0 {
		return nil, fmt.Errorf("datalevels: no data to convert")
	}
	levels, err := dl.Levels()
	if err != nil {
		return nil, err
	}
	extend := dl.Extend()
	norm, err := NewExtendedNorm(levels, dl.binCount(levels), extend)
	if err != nil {
		return nil, err
	}
	base, err := dl.Cmap()
	if err != nil {
		return nil, err
	}
	cmap, err := base.Sample(norm.N())
	if err != nil {
		return nil, err
	}

	if mn, mx, ok := dl.dataRange(); ok {
		if mn < norm.VMin() && (extend == ExtendNeither || extend == ExtendMax) {
			slog.Warn("data below the lower plot bound will saturate",
				"data_min", mn, "vmin", norm.VMin())
		}
		if mx > norm.VMax() && (extend == ExtendNeither || extend == ExtendMin) {
			slog.Warn("data above the upper plot bound will saturate",
				"data_max", mx, "vmax", norm.VMax())
		}
	}

	out := make([]RGBA, len(dl.data))
	for k, idx := range norm.ApplyAll(dl.data) {
		out[k] = cmap.At(idx)
	}
	return out, nil
}

func (dl *DataLevels) dataRange() (mn, mx float64, ok bool) {
	mn, mx = math.Inf(1), math.Inf(-1)
	for _, v := range dl.data {
		if math.IsNaN(v) {
			continue
		}
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	if math.IsInf(mn, 1) {
		return 0, 0, false
	}
	return mn, mx, true
}

func linspace(lo, hi float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for k := range out {
		out[k] = lo + float64(k)*step
	}
	out[n-1] = hi
	return out
}
