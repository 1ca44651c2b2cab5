package geoplot

import (
	"math"
	"testing"
)

func testColors(t *testing.T, n int) (*Colormap, []RGBA) {
	t.Helper()
	colors := make([]RGBA, n)
	for k := range colors {
		colors[k] = RGBA{R: float64(k) / float64(n-1), G: 0.5, B: 0.25, A: 1}
	}
	cm, err := NewListedColormap("test", colors)
	if err != nil {
		t.Fatal(err)
	}
	return cm, colors
}

func TestDataLevels_LevelsFromRange(t *testing.T) {
	dl, err := NewDataLevels(PlotParams{NLevels: 5})
	if err != nil {
		t.Fatal(err)
	}
	dl.SetVMin(0)
	dl.SetVMax(10)

	levels, err := dl.Levels()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 2.5, 5, 7.5, 10}
	if len(levels) != len(want) {
		t.Fatalf("expected %d levels, got %d", len(want), len(levels))
	}
	for k := range want {
		if math.Abs(levels[k]-want[k]) > 1e-12 {
			t.Errorf("levels[%d] = %g, want %g", k, levels[k], want[k])
		}
	}
}

func TestDataLevels_RangeFromData(t *testing.T) {
	dl, err := NewDataLevels(PlotParams{})
	if err != nil {
		t.Fatal(err)
	}
	dl.SetData([]float64{3, -1, 7, math.NaN()})

	if dl.VMin() != -1 {
		t.Errorf("VMin = %g, want -1", dl.VMin())
	}
	if dl.VMax() != 7 {
		t.Errorf("VMax = %g, want 7", dl.VMax())
	}
}

func TestDataLevels_ExplicitLevelsWin(t *testing.T) {
	dl, err := NewDataLevels(PlotParams{Levels: []float64{0, 1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	dl.SetData([]float64{-5, 10})
	dl.SetVMin(-100) // ignored while levels are set

	if dl.VMin() != 0 || dl.VMax() != 3 {
		t.Errorf("expected range [0, 3], got [%g, %g]", dl.VMin(), dl.VMax())
	}
}

func TestDataLevels_ExtendAuto(t *testing.T) {
	dl, err := NewDataLevels(PlotParams{Levels: []float64{0, 1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		data []float64
		want Extend
	}{
		{"inside", []float64{0.5, 2.5}, ExtendNeither},
		{"below", []float64{-1, 2.5}, ExtendMin},
		{"above", []float64{0.5, 9}, ExtendMax},
		{"both sides", []float64{-1, 9}, ExtendBoth},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dl.SetData(c.data)
			if got := dl.Extend(); got != c.want {
				t.Errorf("Extend() = %q, want %q", got, c.want)
			}
		})
	}

	// Forcing extend overrides the detection
	dl.SetData([]float64{-1, 9})
	if err := dl.SetExtend(ExtendNeither); err != nil {
		t.Fatal(err)
	}
	if got := dl.Extend(); got != ExtendNeither {
		t.Errorf("forced Extend() = %q, want neither", got)
	}
	dl.SetExtendAuto()
	if got := dl.Extend(); got != ExtendBoth {
		t.Errorf("auto Extend() = %q, want both", got)
	}
}

func TestDataLevels_SetPlotParamsResets(t *testing.T) {
	dl, err := NewDataLevels(PlotParams{Levels: []float64{0, 1, 2}, Extend: ExtendBoth})
	if err != nil {
		t.Fatal(err)
	}
	dl.SetData([]float64{0.5, 1.5})

	if err := dl.SetPlotParams(PlotParams{}); err != nil {
		t.Fatal(err)
	}

	// Levels and extend revert to data-driven defaults, data survives
	if dl.VMin() != 0.5 || dl.VMax() != 1.5 {
		t.Errorf("expected data-driven range [0.5, 1.5], got [%g, %g]", dl.VMin(), dl.VMax())
	}
	if got := dl.Extend(); got != ExtendNeither {
		t.Errorf("Extend() = %q, want neither after reset", got)
	}
	levels, err := dl.Levels()
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != defaultNLevels {
		t.Errorf("expected %d default levels, got %d", defaultNLevels, len(levels))
	}
}

func TestDataLevels_Update(t *testing.T) {
	dl, err := NewDataLevels(PlotParams{})
	if err != nil {
		t.Fatal(err)
	}

	err = dl.Update(map[string]any{
		"data":   []float64{1, 2},
		"levels": []float64{0, 1, 2, 3},
		"extend": "max",
	})
	if err != nil {
		t.Fatal(err)
	}
	if dl.VMax() != 3 {
		t.Errorf("VMax = %g, want 3", dl.VMax())
	}
	if dl.Extend() != ExtendMax {
		t.Errorf("Extend() = %q, want max", dl.Extend())
	}

	if err := dl.Update(map[string]any{"levelz": []float64{0, 1}}); err == nil {
		t.Error("expected error for unknown parameter, got nil")
	}
	if err := dl.Update(map[string]any{"vmin": "low"}); err == nil {
		t.Error("expected error for non-numeric vmin, got nil")
	}
}

func TestDataLevels_ToRGBInside(t *testing.T) {
	cm, colors := testColors(t, 3)
	dl, err := NewDataLevels(PlotParams{Levels: []float64{0, 1, 2, 3}, Cmap: cm})
	if err != nil {
		t.Fatal(err)
	}
	dl.SetData([]float64{0.5, 1.5, 2.5})

	got, err := dl.ToRGB()
	if err != nil {
		t.Fatal(err)
	}
	want := []RGBA{colors[0], colors[1], colors[2]}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("ToRGB[%d] = %+v, want %+v", k, got[k], want[k])
		}
	}
}

func TestDataLevels_ToRGBExtendBoth(t *testing.T) {
	cm, colors := testColors(t, 5)
	dl, err := NewDataLevels(PlotParams{Levels: []float64{0, 1, 2, 3}, Cmap: cm})
	if err != nil {
		t.Fatal(err)
	}
	// -1 and 9 trigger extend both: 5 bins, outermost colors reserved for
	// the saturation sides
	dl.SetData([]float64{-1, 0.5, 1.5, 2.5, 9})

	got, err := dl.ToRGB()
	if err != nil {
		t.Fatal(err)
	}
	want := []RGBA{colors[0], colors[1], colors[2], colors[3], colors[4]}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("ToRGB[%d] = %+v, want %+v", k, got[k], want[k])
		}
	}
}

func TestDataLevels_ToRGBSaturates(t *testing.T) {
	cm, colors := testColors(t, 3)
	dl, err := NewDataLevels(PlotParams{Levels: []float64{0, 1, 2, 3}, Extend: ExtendNeither, Cmap: cm})
	if err != nil {
		t.Fatal(err)
	}
	dl.SetData([]float64{-1, 9})

	got, err := dl.ToRGB()
	if err != nil {
		t.Fatal(err)
	}
	// Out-of-range values fall back to the edge colors
	if got[0] != colors[0] {
		t.Errorf("under value = %+v, want %+v", got[0], colors[0])
	}
	if got[1] != colors[2] {
		t.Errorf("over value = %+v, want %+v", got[1], colors[2])
	}
}

func TestDataLevels_ZeroValue(t *testing.T) {
	var dl DataLevels
	dl.SetData([]float64{0.2, 0.4, 0.8})
	levels, err := dl.Levels()
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != defaultNLevels {
		t.Fatalf("level count = %d, want %d", len(levels), defaultNLevels)
	}
	if _, err := dl.ToRGB(); err != nil {
		t.Fatalf("ToRGB: %v", err)
	}
}

func TestDataLevels_ToRGBNoData(t *testing.T) {
	dl, err := NewDataLevels(PlotParams{Levels: []float64{0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dl.ToRGB(); err == nil {
		t.Error("expected error without data, got nil")
	}
}
