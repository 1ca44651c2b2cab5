package main

import "testing"

func TestParseTileCoord(t *testing.T) {
	tile, err := parseTileCoord("4/8/5")
	if err != nil {
		t.Fatal(err)
	}
	if tile.Z != 4 || tile.X != 8 || tile.Y != 5 {
		t.Errorf("tile = %d/%d/%d, want 4/8/5", tile.Z, tile.X, tile.Y)
	}

	bad := []string{"4/8", "4/8/5/1", "a/8/5", "4/b/5", "4/8/c", "-1/8/5", "4/-8/5", "4/8/-5"}
	for _, s := range bad {
		if _, err := parseTileCoord(s); err == nil {
			t.Errorf("parseTileCoord(%q) accepted an invalid coordinate", s)
		}
	}
}
