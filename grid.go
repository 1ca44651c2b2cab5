package geoplot

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// PixelRef says whether a grid origin refers to the center of the origin
// pixel or to its outer corner.
type PixelRef string

const (
	PixelCenter PixelRef = "center"
	PixelCorner PixelRef = "corner"
)

// Interp selects how gridded data is mapped between grids.
type Interp string

const (
	InterpNearest Interp = "nearest"
	InterpLinear  Interp = "linear"
)

// GridSpec describes a regular grid in a projection. X0/Y0 locate the origin
// pixel (i=0, j=0) according to PixelRef. Dy may be negative for grids whose
// rows run north to south.
type GridSpec struct {
	Proj     CRS
	Nx, Ny   int
	Dx, Dy   float64
	X0, Y0   float64
	PixelRef PixelRef // default PixelCenter
}

// Grid is a regular 2-D grid georeferenced by a projection. Internally the
// origin is normalized to the center of pixel (0, 0), so grids built from
// corner or center references compare equal when they describe the same
// pixels.
type Grid struct {
	proj     CRS
	nx, ny   int
	dx, dy   float64
	cx0, cy0 float64 // center of pixel (0, 0)
	ref      PixelRef
}

// NewGrid validates the spec and builds a grid.
func NewGrid(spec GridSpec) (*Grid, error) {
	if spec.Proj == nil {
		return nil, fmt.Errorf("grid: projection is required")
	}
	if _, isGrid := spec.Proj.(*Grid); isGrid {
		return nil, fmt.Errorf("grid: projection must not be another grid")
	}
	if spec.Nx < 1 || spec.Ny < 1 {
		return nil, fmt.Errorf("grid: invalid size %dx%d", spec.Nx, spec.Ny)
	}
	if spec.Dx <= 0 {
		return nil, fmt.Errorf("grid: dx must be positive, got %g", spec.Dx)
	}
	if spec.Dy == 0 {
		return nil, fmt.Errorf("grid: dy must not be zero")
	}
	ref := spec.PixelRef
	if ref == "" {
		ref = PixelCenter
	}
	if ref != PixelCenter && ref != PixelCorner {
		return nil, fmt.Errorf("grid: unknown pixel reference %q", ref)
	}

	cx0, cy0 := spec.X0, spec.Y0
	if ref == PixelCorner {
		cx0 += spec.Dx / 2
		cy0 += spec.Dy / 2
	}

	return &Grid{
		proj: spec.Proj,
		nx:   spec.Nx,
		ny:   spec.Ny,
		dx:   spec.Dx,
		dy:   spec.Dy,
		cx0:  cx0,
		cy0:  cy0,
		ref:  ref,
	}, nil
}

func (g *Grid) Nx() int     { return g.nx }
func (g *Grid) Ny() int     { return g.ny }
func (g *Grid) Dx() float64 { return g.dx }
func (g *Grid) Dy() float64 { return g.dy }

// Proj returns the grid's projection.
func (g *Grid) Proj() CRS { return g.proj }

// CenterGrid returns the same grid with a pixel-center origin reference.
func (g *Grid) CenterGrid() *Grid {
	out := *g
	out.ref = PixelCenter
	return &out
}

// CornerGrid returns the same grid with a pixel-corner origin reference.
// It describes the same pixels and compares equal to the receiver.
func (g *Grid) CornerGrid() *Grid {
	out := *g
	out.ref = PixelCorner
	return &out
}

// Equal reports whether two grids describe the same pixels: same projection,
// size, resolution and (normalized) origin.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.proj.Describe() == o.proj.Describe() &&
		g.nx == o.nx && g.ny == o.ny &&
		floatEq(g.dx, o.dx) && floatEq(g.dy, o.dy) &&
		floatEq(g.cx0, o.cx0) && floatEq(g.cy0, o.cy0)
}

func floatEq(a, b float64) bool {
	tol := 1e-9 * math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol
}

// IJToXY converts fractional pixel indices to projected coordinates of the
// pixel center.
func (g *Grid) IJToXY(i, j float64) (x, y float64) {
	return g.cx0 + i*g.dx, g.cy0 + j*g.dy
}

// XYToIJ converts projected coordinates to fractional pixel indices.
func (g *Grid) XYToIJ(x, y float64) (i, j float64) {
	return (x - g.cx0) / g.dx, (y - g.cy0) / g.dy
}

// Index converts projected coordinates to the nearest pixel index, with a
// bounds check.
func (g *Grid) Index(x, y float64) (i, j int, ok bool) {
	fi, fj := g.XYToIJ(x, y)
	i = int(math.Round(fi))
	j = int(math.Round(fj))
	ok = i >= 0 && i < g.nx && j >= 0 && j < g.ny
	return i, j, ok
}

// Grid implements CRS: coordinates in "grid space" are fractional pixel
// indices.

func (g *Grid) Describe() string {
	return fmt.Sprintf("grid %dx%d dxdy=(%g,%g) origin=(%g,%g) on %s",
		g.nx, g.ny, g.dx, g.dy, g.cx0, g.cy0, g.proj.Describe())
}

func (g *Grid) ToLonLat(i, j float64) (float64, float64) {
	x, y := g.IJToXY(i, j)
	return g.proj.ToLonLat(x, y)
}

func (g *Grid) FromLonLat(lon, lat float64) (float64, float64) {
	x, y := g.proj.FromLonLat(lon, lat)
	return g.XYToIJ(x, y)
}

// Extent returns the outer bounds of the grid in projected coordinates:
// [xmin, xmax, ymin, ymax].
func (g *Grid) Extent() [4]float64 {
	x1 := g.cx0 - g.dx/2
	x2 := g.cx0 + (float64(g.nx)-0.5)*g.dx
	y1 := g.cy0 - g.dy/2
	y2 := g.cy0 + (float64(g.ny)-0.5)*g.dy
	return [4]float64{
		math.Min(x1, x2), math.Max(x1, x2),
		math.Min(y1, y2), math.Max(y1, y2),
	}
}

// XYCoordinates returns the projected coordinates of all pixel centers as
// two [ny][nx] matrices.
func (g *Grid) XYCoordinates() (xx, yy [][]float64) {
	xx = make([][]float64, g.ny)
	yy = make([][]float64, g.ny)
	for j := 0; j < g.ny; j++ {
		xx[j] = make([]float64, g.nx)
		yy[j] = make([]float64, g.nx)
		for i := 0; i < g.nx; i++ {
			xx[j][i], yy[j][i] = g.IJToXY(float64(i), float64(j))
		}
	}
	return xx, yy
}

// LonLatCoordinates returns the geographic coordinates of all pixel centers
// as two [ny][nx] matrices.
func (g *Grid) LonLatCoordinates() (lon, lat [][]float64) {
	lon = make([][]float64, g.ny)
	lat = make([][]float64, g.ny)
	for j := 0; j < g.ny; j++ {
		lon[j] = make([]float64, g.nx)
		lat[j] = make([]float64, g.nx)
		for i := 0; i < g.nx; i++ {
			lon[j][i], lat[j][i] = g.ToLonLat(float64(i), float64(j))
		}
	}
	return lon, lat
}

// Regrid returns a grid covering the same extent with the resolution scaled
// by factor (factor 2 doubles the pixel count along each axis).
func (g *Grid) Regrid(factor float64) (*Grid, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("grid: regrid factor must be positive, got %g", factor)
	}
	nx := int(math.Round(float64(g.nx) * factor))
	ny := int(math.Round(float64(g.ny) * factor))
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("grid: regrid factor %g collapses the grid", factor)
	}
	dx := g.dx * float64(g.nx) / float64(nx)
	dy := g.dy * float64(g.ny) / float64(ny)
	cornerX := g.cx0 - g.dx/2
	cornerY := g.cy0 - g.dy/2
	return &Grid{
		proj: g.proj,
		nx:   nx,
		ny:   ny,
		dx:   dx,
		dy:   dy,
		cx0:  cornerX + dx/2,
		cy0:  cornerY + dy/2,
		ref:  g.ref,
	}, nil
}

// Transform converts points expressed in the given system into this grid's
// fractional index space. A nil system means the grid's own projection.
func (g *Grid) Transform(pts []orb.Point, from CRS) []orb.Point {
	if from == nil {
		from = g.proj
	}
	out := make([]orb.Point, len(pts))
	for k, p := range pts {
		lon, lat := from.ToLonLat(p[0], p[1])
		i, j := g.FromLonLat(lon, lat)
		out[k] = orb.Point{i, j}
	}
	return out
}

// MapGridded maps data defined on the src grid onto the receiver. The data
// must be shaped [src.Ny()][src.Nx()]. Destination cells falling outside the
// source grid are NaN. Equivalent grids short-circuit to a copy.
func (g *Grid) MapGridded(data [][]float64, src *Grid, interp Interp) ([][]float64, error) {
	if src == nil {
		return nil, fmt.Errorf("grid: source grid is required")
	}
	if interp != InterpNearest && interp != InterpLinear {
		return nil, fmt.Errorf("grid: unknown interpolation %q", interp)
	}
	if len(data) != src.ny {
		return nil, fmt.Errorf("grid: data has %d rows, source grid has %d", len(data), src.ny)
	}
	for j := range data {
		if len(data[j]) != src.nx {
			return nil, fmt.Errorf("grid: data row %d has %d columns, source grid has %d", j, len(data[j]), src.nx)
		}
	}

	if g.Equal(src) {
		out := make([][]float64, g.ny)
		for j := range out {
			out[j] = make([]float64, g.nx)
			copy(out[j], data[j])
		}
		return out, nil
	}

	sameProj := g.proj.Describe() == src.proj.Describe()

	out := make([][]float64, g.ny)
	for j := 0; j < g.ny; j++ {
		out[j] = make([]float64, g.nx)
		for i := 0; i < g.nx; i++ {
			x, y := g.IJToXY(float64(i), float64(j))
			sx, sy := x, y
			if !sameProj {
				lon, lat := g.proj.ToLonLat(x, y)
				sx, sy = src.proj.FromLonLat(lon, lat)
			}
			fi, fj := src.XYToIJ(sx, sy)
			if interp == InterpNearest {
				out[j][i] = sampleNearest(data, src.nx, src.ny, fi, fj)
			} else {
				out[j][i] = sampleLinear(data, src.nx, src.ny, fi, fj)
			}
		}
	}
	return out, nil
}

func sampleNearest(data [][]float64, nx, ny int, fi, fj float64) float64 {
	i := int(math.Round(fi))
	j := int(math.Round(fj))
	if i < 0 || i >= nx || j < 0 || j >= ny {
		return math.NaN()
	}
	return data[j][i]
}

func sampleLinear(data [][]float64, nx, ny int, fi, fj float64) float64 {
	if fi < 0 || fi > float64(nx-1) || fj < 0 || fj > float64(ny-1) {
		return math.NaN()
	}
	i0 := int(math.Floor(fi))
	j0 := int(math.Floor(fj))
	i1 := i0 + 1
	j1 := j0 + 1
	if i1 > nx-1 {
		i1 = nx - 1
	}
	if j1 > ny-1 {
		j1 = ny - 1
	}
	tx := fi - float64(i0)
	ty := fj - float64(j0)

	v00 := data[j0][i0]
	v10 := data[j0][i1]
	v01 := data[j1][i0]
	v11 := data[j1][i1]
	top := v00*(1-tx) + v10*tx
	bot := v01*(1-tx) + v11*tx
	return top*(1-ty) + bot*ty
}

// MercatorGrid builds a local spherical-mercator grid centered on a
// geographic point. The extent is given in meters on the ground; the pixel
// size is corrected for the mercator scale distortion at the center
// latitude. Ny is derived from the extent aspect ratio to keep pixels
// square.
func MercatorGrid(centerLon, centerLat, extentX, extentY float64, nx int) (*Grid, error) {
	if nx < 1 {
		return nil, fmt.Errorf("grid: nx must be at least 1, got %d", nx)
	}
	if extentX <= 0 || extentY <= 0 {
		return nil, fmt.Errorf("grid: extent must be positive, got (%g, %g)", extentX, extentY)
	}
	if math.Abs(centerLat) > 85 {
		return nil, fmt.Errorf("grid: center latitude %g outside mercator validity", centerLat)
	}

	cx, cy := SphericalMercator.FromLonLat(centerLon, centerLat)

	// Mercator meters are inflated by 1/cos(lat) away from the equator.
	scale := 1 / math.Cos(centerLat*math.Pi/180)
	mex := extentX * scale
	mey := extentY * scale

	ny := int(math.Round(extentY / extentX * float64(nx)))
	if ny < 1 {
		ny = 1
	}

	return NewGrid(GridSpec{
		Proj:     SphericalMercator,
		Nx:       nx,
		Ny:       ny,
		Dx:       mex / float64(nx),
		Dy:       mey / float64(ny),
		X0:       cx - mex/2,
		Y0:       cy - mey/2,
		PixelRef: PixelCorner,
	})
}
