package geoplot

import (
	"math"
	"testing"
)

func TestReadColormap(t *testing.T) {
	tbl, err := ReadColormap("topo")
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl) != 64 {
		t.Fatalf("expected 64 rows, got %d", len(tbl))
	}
	checkRow := func(name string, row, want [3]float64) {
		t.Helper()
		for k := range want {
			if math.Abs(row[k]-want[k]/256) > 1e-12 {
				t.Errorf("%s channel %d = %g, want %g", name, k, row[k]*256, want[k])
			}
		}
	}
	checkRow("topo[4]", tbl[4], [3]float64{177, 242, 196})
	checkRow("topo[-1]", tbl[63], [3]float64{235, 233, 235})
	for _, row := range tbl {
		for k, v := range row {
			if v < 0 || v >= 1 {
				t.Fatalf("channel %d value %g outside [0, 1)", k, v)
			}
		}
	}

	dem, err := ReadColormap("dem")
	if err != nil {
		t.Fatal(err)
	}
	checkRow("dem[4]", dem[4], [3]float64{153, 100, 43})
	checkRow("dem[-1]", dem[63], [3]float64{255, 255, 255})

	for _, name := range []string{"jet", "gray"} {
		if _, err := ReadColormap(name); err != nil {
			t.Errorf("ReadColormap(%q) failed: %v", name, err)
		}
	}

	if _, err := ReadColormap("nope"); err == nil {
		t.Error("expected error for unknown colormap, got nil")
	}
}

func TestColormap_At(t *testing.T) {
	cm, colors := testColors(t, 4)

	if got := cm.At(0); got != colors[0] {
		t.Errorf("At(0) = %+v, want %+v", got, colors[0])
	}
	if got := cm.At(3); got != colors[3] {
		t.Errorf("At(3) = %+v, want %+v", got, colors[3])
	}
	// Under and over default to the edge colors
	if got := cm.At(-1); got != colors[0] {
		t.Errorf("At(-1) = %+v, want %+v", got, colors[0])
	}
	if got := cm.At(4); got != colors[3] {
		t.Errorf("At(4) = %+v, want %+v", got, colors[3])
	}
	// Bad defaults to transparent
	if got := cm.At(BadIndex); got != (RGBA{}) {
		t.Errorf("At(BadIndex) = %+v, want transparent", got)
	}

	pink := RGBA{R: 1, G: 0.75, B: 0.8, A: 1}
	cm.SetBad(pink)
	cm.SetUnder(RGBA{A: 1})
	cm.SetOver(RGBA{R: 1, A: 1})
	if got := cm.At(BadIndex); got != pink {
		t.Errorf("At(BadIndex) = %+v, want pink", got)
	}
	if got := cm.At(-5); got != (RGBA{A: 1}) {
		t.Errorf("At(-5) = %+v, want under override", got)
	}
	if got := cm.At(100); got != (RGBA{R: 1, A: 1}) {
		t.Errorf("At(100) = %+v, want over override", got)
	}
}

func TestColormap_Sample(t *testing.T) {
	cm, colors := testColors(t, 3)

	same, err := cm.Sample(3)
	if err != nil {
		t.Fatal(err)
	}
	for k := range colors {
		if same.At(k) != colors[k] {
			t.Errorf("identity sample At(%d) = %+v, want %+v", k, same.At(k), colors[k])
		}
	}

	two, err := cm.Sample(2)
	if err != nil {
		t.Fatal(err)
	}
	if two.N() != 2 {
		t.Fatalf("expected 2 colors, got %d", two.N())
	}
	if two.At(0) != colors[0] || two.At(1) != colors[2] {
		t.Errorf("2-color sample keeps the endpoints, got %+v and %+v", two.At(0), two.At(1))
	}

	five, err := cm.Sample(5)
	if err != nil {
		t.Fatal(err)
	}
	// Position 2 of 5 lands exactly on the middle source color
	if got := five.At(2); math.Abs(got.R-colors[1].R) > 1e-9 {
		t.Errorf("midpoint R = %g, want %g", got.R, colors[1].R)
	}

	if _, err := cm.Sample(0); err == nil {
		t.Error("expected error for zero sample size, got nil")
	}
}

func TestGetColormap(t *testing.T) {
	cm, err := GetColormap("jet")
	if err != nil {
		t.Fatal(err)
	}
	if cm.N() != 64 {
		t.Errorf("expected 64 colors, got %d", cm.N())
	}
	first := cm.At(0)
	if first.A != 1 {
		t.Errorf("expected opaque colors, got alpha %g", first.A)
	}
	if math.Abs(first.B-127.0/256) > 1e-12 {
		t.Errorf("jet starts blue, got %+v", first)
	}
}
