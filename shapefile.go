package geoplot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ShapeCollection is a set of vector features read from a shapefile,
// together with per-feature bounds and the coordinate system the
// geometries live in.
type ShapeCollection struct {
	Source   string
	CRS      CRS
	Features []*geojson.Feature

	// Per-feature bounding boxes, index-aligned with Features.
	MinX, MaxX []float64
	MinY, MaxY []float64
}

func newShapeCollection(source string, crs CRS, features []*geojson.Feature) *ShapeCollection {
	sc := &ShapeCollection{
		Source:   source,
		CRS:      crs,
		Features: features,
		MinX:     make([]float64, len(features)),
		MaxX:     make([]float64, len(features)),
		MinY:     make([]float64, len(features)),
		MaxY:     make([]float64, len(features)),
	}
	for k, f := range features {
		b := f.Geometry.Bound()
		sc.MinX[k], sc.MinY[k] = b.Min.X(), b.Min.Y()
		sc.MaxX[k], sc.MaxY[k] = b.Max.X(), b.Max.Y()
	}
	return sc
}

// ReadShapefile reads a shapefile into a feature collection. Geometries
// are assumed to be geographic lon/lat. With cached set, the parsed
// features are stored as GeoJSON in the shapefile cache and later reads
// of an unchanged file skip the parse.
func ReadShapefile(path string, cached bool) (*ShapeCollection, error) {
	if filepath.Ext(path) == shapeCacheExt {
		fc, err := loadCachedCollection(path)
		if err != nil {
			return nil, fmt.Errorf("shapefile: read cache %s: %w", path, err)
		}
		return newShapeCollection(path, WGS84, fc.Features), nil
	}

	if !cached {
		features, err := readShapefileRaw(path)
		if err != nil {
			return nil, err
		}
		return newShapeCollection(path, WGS84, features), nil
	}

	cp, err := CachedShapefilePath(path)
	if err != nil {
		return nil, err
	}
	if fc, err := loadCachedCollection(cp); err == nil {
		return newShapeCollection(path, WGS84, fc.Features), nil
	} else if !os.IsNotExist(err) {
		slog.Warn("shapefile cache unreadable, re-parsing source", "cache", cp, "error", err)
	}

	features, err := readShapefileRaw(path)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	fc.Features = features
	if err := writeCachedCollection(cp, fc); err != nil {
		return nil, err
	}
	return newShapeCollection(path, WGS84, features), nil
}

// readShapefileRaw parses the .shp and .dbf pair into GeoJSON features.
// Polygon rings follow the shapefile winding convention: clockwise rings
// open a new polygon, counterclockwise rings are holes in the previous one.
func readShapefileRaw(path string) ([]*geojson.Feature, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("shapefile: open %s: %w", path, err)
	}
	defer r.Close()

	fields := r.Fields()
	var features []*geojson.Feature
	for r.Next() {
		row, shape := r.Shape()
		geom, err := shapeToGeometry(shape)
		if err != nil {
			return nil, fmt.Errorf("shapefile: %s record %d: %w", path, row, err)
		}
		if geom == nil {
			continue
		}
		f := geojson.NewFeature(geom)
		for k, fld := range fields {
			f.Properties[strings.TrimRight(fld.String(), "\x00")] = r.ReadAttribute(row, k)
		}
		features = append(features, f)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("shapefile: read %s: %w", path, err)
	}
	return features, nil
}

func shapeToGeometry(shape shp.Shape) (orb.Geometry, error) {
	switch s := shape.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Point:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PolyLine:
		ls := partsToLines(s.Parts, s.Points)
		if len(ls) == 1 {
			return ls[0], nil
		}
		return orb.MultiLineString(ls), nil
	case *shp.Polygon:
		return ringsToPolygons(partsToLines(s.Parts, s.Points))
	default:
		return nil, fmt.Errorf("unsupported shape type %T", shape)
	}
}

func partsToLines(parts []int32, points []shp.Point) []orb.LineString {
	out := make([]orb.LineString, 0, len(parts))
	for k, start := range parts {
		end := len(points)
		if k+1 < len(parts) {
			end = int(parts[k+1])
		}
		ls := make(orb.LineString, 0, end-int(start))
		for _, p := range points[start:end] {
			ls = append(ls, orb.Point{p.X, p.Y})
		}
		out = append(out, ls)
	}
	return out
}

func ringsToPolygons(lines []orb.LineString) (orb.Geometry, error) {
	var polys orb.MultiPolygon
	for _, ls := range lines {
		ring := orb.Ring(ls)
		if ring.Orientation() == orb.CCW {
			// A hole belongs to the polygon opened by the last outer ring.
			if len(polys) == 0 {
				return nil, fmt.Errorf("hole ring before any outer ring")
			}
			polys[len(polys)-1] = append(polys[len(polys)-1], ring)
			continue
		}
		polys = append(polys, orb.Polygon{ring})
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("polygon record with no outer ring")
	}
	if len(polys) == 1 {
		return polys[0], nil
	}
	return polys, nil
}

// TransformShapes reprojects every feature of a collection into another
// coordinate system and recomputes the per-feature bounds.
func TransformShapes(sc *ShapeCollection, to CRS) (*ShapeCollection, error) {
	if to == nil {
		return nil, fmt.Errorf("shapefile: target crs is required")
	}
	if sameCRS(sc.CRS, to) {
		return sc, nil
	}
	features := make([]*geojson.Feature, len(sc.Features))
	for k, f := range sc.Features {
		nf := geojson.NewFeature(TransformGeometry(f.Geometry, sc.CRS, to))
		for key, val := range f.Properties {
			nf.Properties[key] = val
		}
		features[k] = nf
	}
	out := newShapeCollection(sc.Source, to, features)
	return out, nil
}

// ReadShapefileToGrid reads a shapefile (through the cache) and reprojects
// it into a grid's index coordinates, ready to be drawn over the grid's
// pixels.
func ReadShapefileToGrid(path string, g *Grid) (*ShapeCollection, error) {
	if g == nil {
		return nil, fmt.Errorf("shapefile: grid is required")
	}
	sc, err := ReadShapefile(path, true)
	if err != nil {
		return nil, err
	}
	return TransformShapes(sc, g)
}

// RasterizeCount counts, for every grid cell, how many polygon features
// contain the cell center. The collection must already be in the grid's
// coordinates.
func RasterizeCount(sc *ShapeCollection, g *Grid) ([][]float64, error) {
	if !sameCRS(sc.CRS, g) {
		return nil, fmt.Errorf("shapefile: collection is in %s, not on the grid", sc.CRS.Describe())
	}
	out := make([][]float64, g.Ny())
	for j := range out {
		out[j] = make([]float64, g.Nx())
	}
	// Coordinates are fractional grid indices, so cell (i, j) centers on
	// the point (i, j).
	for _, f := range sc.Features {
		bound := f.Geometry.Bound()
		for j := 0; j < g.Ny(); j++ {
			for i := 0; i < g.Nx(); i++ {
				pt := orb.Point{float64(i), float64(j)}
				if !bound.Contains(pt) {
					continue
				}
				if geometryContains(f.Geometry, pt) {
					out[j][i]++
				}
			}
		}
	}
	return out, nil
}

func geometryContains(geom orb.Geometry, pt orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	case orb.Collection:
		for _, sub := range g {
			if geometryContains(sub, pt) {
				return true
			}
		}
	}
	return false
}
