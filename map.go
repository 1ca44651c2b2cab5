package geoplot

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
)

const defaultMapHeight = 600

// Map renders gridded data into an RGB image. The map owns a pixel grid
// regridded from the source grid to the requested pixel height, and data
// set on any compatible grid is resampled onto it.
type Map struct {
	DataLevels

	grid    *Grid // the geolocated source grid
	pixGrid *Grid // the pixel grid the image is rendered on
	raster  [][]float64
}

// NewMap builds a map on a grid. The image height in pixels defaults to
// 600 when ny is not positive; the width follows from the grid's aspect
// ratio.
func NewMap(g *Grid, ny int) (*Map, error) {
	if g == nil {
		return nil, fmt.Errorf("map: grid is required")
	}
	if ny <= 0 {
		ny = defaultMapHeight
	}
	pix, err := g.Regrid(float64(ny) / float64(g.Ny()))
	if err != nil {
		return nil, fmt.Errorf("map: regrid to %d pixel rows: %w", ny, err)
	}
	m := &Map{grid: g, pixGrid: pix}
	if err := m.SetPlotParams(PlotParams{}); err != nil {
		return nil, err
	}
	return m, nil
}

// Grid returns the source grid the map was built on.
func (m *Map) Grid() *Grid { return m.grid }

// PixelGrid returns the grid of the rendered image.
func (m *Map) PixelGrid() *Grid { return m.pixGrid }

// SetData sets data located on the map's own grid, resampled to the pixel
// grid with nearest-neighbor lookup.
func (m *Map) SetData(data [][]float64) error {
	return m.SetDataOn(data, m.grid, InterpNearest)
}

// SetDataOn sets data located on an arbitrary grid. A nil crs means the
// map's own grid. The data is transformed and resampled onto the pixel
// grid with the given interpolation.
func (m *Map) SetDataOn(data [][]float64, crs CRS, interp Interp) error {
	src := m.grid
	if crs != nil {
		g, ok := crs.(*Grid)
		if !ok {
			return fmt.Errorf("map: data must be located on a grid, got %s", crs.Describe())
		}
		src = g
	}
	if len(data) != src.Ny() {
		return fmt.Errorf("map: data has %d rows, grid has %d", len(data), src.Ny())
	}
	for j, row := range data {
		if len(row) != src.Nx() {
			return fmt.Errorf("map: data row %d has %d values, grid has %d", j, len(row), src.Nx())
		}
	}
	raster, err := m.pixGrid.MapGridded(data, src, interp)
	if err != nil {
		return fmt.Errorf("map: resample data: %w", err)
	}
	m.raster = raster

	flat := make([]float64, 0, len(raster)*m.pixGrid.Nx())
	for _, row := range raster {
		flat = append(flat, row...)
	}
	m.DataLevels.SetData(flat)
	return nil
}

// ToRGB returns the rendered pixels as a row-major color matrix.
func (m *Map) ToRGB() ([][]RGBA, error) {
	if m.raster == nil {
		return nil, fmt.Errorf("map: no data set")
	}
	flat, err := m.DataLevels.ToRGB()
	if err != nil {
		return nil, err
	}
	nx := m.pixGrid.Nx()
	out := make([][]RGBA, m.pixGrid.Ny())
	for j := range out {
		out[j] = flat[j*nx : (j+1)*nx]
	}
	return out, nil
}

// Image renders the map into an image. Rows are flipped when the grid's
// y axis points up so north ends up at the top of the image.
func (m *Map) Image() (image.Image, error) {
	rgb, err := m.ToRGB()
	if err != nil {
		return nil, err
	}
	ny, nx := len(rgb), m.pixGrid.Nx()
	img := image.NewNRGBA(image.Rect(0, 0, nx, ny))
	for j := 0; j < ny; j++ {
		srcRow := j
		if m.pixGrid.Dy() > 0 {
			srcRow = ny - 1 - j
		}
		for i := 0; i < nx; i++ {
			c := rgb[srcRow][i]
			off := img.PixOffset(i, j)
			img.Pix[off+0] = channelByte(c.R)
			img.Pix[off+1] = channelByte(c.G)
			img.Pix[off+2] = channelByte(c.B)
			img.Pix[off+3] = channelByte(c.A)
		}
	}
	return img, nil
}

// WritePNG renders the map and writes it as a PNG file.
func (m *Map) WritePNG(path string) error {
	img, err := m.Image()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("map: create %s: %w", path, err)
	}
	if err := encodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("map: close %s: %w", path, err)
	}
	return nil
}

func encodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("map: encode png: %w", err)
	}
	return nil
}

func channelByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
