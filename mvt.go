package geoplot

import (
	"fmt"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// EncodeTile packs a feature collection into a Mapbox vector tile. The
// collection must be in geographic lon/lat; features are projected to the
// tile's coordinates and clipped to the tile buffer.
func EncodeTile(sc *ShapeCollection, tile maptile.Tile, layerName string) ([]byte, error) {
	if !sameCRS(sc.CRS, WGS84) {
		return nil, fmt.Errorf("mvt: collection is in %s, reproject to lon/lat first", sc.CRS.Describe())
	}
	fc := geojson.NewFeatureCollection()
	for _, f := range sc.Features {
		nf := geojson.NewFeature(TransformGeometry(f.Geometry, WGS84, WGS84))
		for key, val := range f.Properties {
			nf.Properties[key] = val
		}
		fc.Append(nf)
	}

	layers := mvt.NewLayers(map[string]*geojson.FeatureCollection{layerName: fc})
	layers.ProjectToTile(tile)
	layers.Clip(mvt.MapboxGLDefaultExtentBound)

	data, err := mvt.Marshal(layers)
	if err != nil {
		return nil, fmt.Errorf("mvt: marshal tile %d/%d/%d: %w", tile.Z, tile.X, tile.Y, err)
	}
	return data, nil
}
