package geoplot

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
)

func TestEncodeTile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.shp")
	writeTestShapefile(t, path)

	sc, err := ReadShapefile(path, false)
	if err != nil {
		t.Fatal(err)
	}

	tile := maptile.At(orb.Point{2, 1.5}, 4)
	data, err := EncodeTile(sc, tile, "shapes")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected tile bytes, got none")
	}

	layers, err := mvt.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(layers) != 1 || layers[0].Name != "shapes" {
		t.Fatalf("expected a single 'shapes' layer, got %v", layers)
	}
	if len(layers[0].Features) == 0 {
		t.Error("expected features in the tile layer")
	}

	// Properties travel into the tile
	found := false
	for _, f := range layers[0].Features {
		if f.Properties["name"] == "diamond" {
			found = true
		}
	}
	if !found {
		t.Error("expected the diamond feature's name property in the tile")
	}
}

func TestEncodeTile_RequiresLonLat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.shp")
	writeTestShapefile(t, path)

	sc, err := ReadShapefile(path, false)
	if err != nil {
		t.Fatal(err)
	}
	merc, err := TransformShapes(sc, SphericalMercator)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := EncodeTile(merc, maptile.New(0, 0, 0), "shapes"); err == nil {
		t.Error("expected error for projected collection, got nil")
	}
}
