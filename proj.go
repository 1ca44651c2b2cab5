package geoplot

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS is a coordinate reference for point data. It is implemented by the
// built-in projections (WGS84, SphericalMercator) and by *Grid, whose
// coordinates are fractional pixel indices.
type CRS interface {
	// Describe returns a stable, comparable description of the system.
	Describe() string
	// ToLonLat converts coordinates in this system to WGS84 lon/lat degrees.
	ToLonLat(x, y float64) (lon, lat float64)
	// FromLonLat converts WGS84 lon/lat degrees to this system.
	FromLonLat(lon, lat float64) (x, y float64)
}

// WGS84 is the plate-carrée geographic system: coordinates are plain
// lon/lat degrees.
var WGS84 CRS = wgs84{}

// SphericalMercator is the web-mercator system (EPSG:3857), coordinates in
// meters. The projection math is provided by orb/project.
var SphericalMercator CRS = sphericalMercator{}

type wgs84 struct{}

func (wgs84) Describe() string                               { return "+proj=latlong +datum=WGS84" }
func (wgs84) ToLonLat(x, y float64) (float64, float64)       { return x, y }
func (wgs84) FromLonLat(lon, lat float64) (float64, float64) { return lon, lat }

type sphericalMercator struct{}

func (sphericalMercator) Describe() string { return "+proj=merc +datum=WGS84" }

func (sphericalMercator) ToLonLat(x, y float64) (float64, float64) {
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return p[0], p[1]
}

func (sphericalMercator) FromLonLat(lon, lat float64) (float64, float64) {
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	return p[0], p[1]
}

// sameCRS reports whether two systems describe the same coordinates.
// Grids compare structurally, projections by description.
func sameCRS(a, b CRS) bool {
	if a == nil || b == nil {
		return a == b
	}
	ga, aIsGrid := a.(*Grid)
	gb, bIsGrid := b.(*Grid)
	if aIsGrid != bIsGrid {
		return false
	}
	if aIsGrid {
		return ga.Equal(gb)
	}
	return a.Describe() == b.Describe()
}

// TransformPoint converts a single coordinate pair between two systems.
func TransformPoint(x, y float64, from, to CRS) (float64, float64) {
	if sameCRS(from, to) {
		return x, y
	}
	lon, lat := from.ToLonLat(x, y)
	return to.FromLonLat(lon, lat)
}

// TransformGeometry returns a copy of geom with all coordinates converted
// from one system to another. The input geometry is left untouched.
func TransformGeometry(geom orb.Geometry, from, to CRS) orb.Geometry {
	if geom == nil {
		return nil
	}
	clone := orb.Clone(geom)
	if sameCRS(from, to) {
		return clone
	}
	return project.Geometry(clone, func(p orb.Point) orb.Point {
		x, y := TransformPoint(p[0], p[1], from, to)
		return orb.Point{x, y}
	})
}
