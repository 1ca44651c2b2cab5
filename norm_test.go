package geoplot

import (
	"math"
	"testing"
)

func TestExtendedNorm_Neither(t *testing.T) {
	norm, err := NewExtendedNorm([]float64{1, 2, 3}, 2, ExtendNeither)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		value float64
		want  int
	}{
		{0.5, -1}, // under
		{1, 0},
		{1.5, 0},
		{2, 1},
		{2.9, 1},
		{3, 2}, // at vmax counts as over
		{9, 2}, // over
	}
	for _, c := range cases {
		if got := norm.Apply(c.value); got != c.want {
			t.Errorf("Apply(%g) = %d, want %d", c.value, got, c.want)
		}
	}

	if norm.VMin() != 1 || norm.VMax() != 3 {
		t.Errorf("expected range [1, 3], got [%g, %g]", norm.VMin(), norm.VMax())
	}
}

func TestExtendedNorm_Both(t *testing.T) {
	norm, err := NewExtendedNorm([]float64{1, 2, 3, 4}, 5, ExtendBoth)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		value float64
		want  int
	}{
		{0, -1},
		{1.5, 1},
		{2.5, 2},
		{3.5, 3},
		{4.5, 5},
	}
	for _, c := range cases {
		if got := norm.Apply(c.value); got != c.want {
			t.Errorf("Apply(%g) = %d, want %d", c.value, got, c.want)
		}
	}
}

func TestExtendedNorm_MinAndMax(t *testing.T) {
	norm, err := NewExtendedNorm([]float64{1, 2, 3}, 3, ExtendMin)
	if err != nil {
		t.Fatal(err)
	}
	if got := norm.Apply(0); got != -1 {
		t.Errorf("under value = %d, want -1", got)
	}
	if got := norm.Apply(1.5); got != 1 {
		t.Errorf("Apply(1.5) = %d, want 1", got)
	}
	if got := norm.Apply(5); got != 3 {
		t.Errorf("over value = %d, want 3", got)
	}

	norm, err = NewExtendedNorm([]float64{1, 2, 3}, 3, ExtendMax)
	if err != nil {
		t.Fatal(err)
	}
	if got := norm.Apply(1.5); got != 0 {
		t.Errorf("Apply(1.5) = %d, want 0", got)
	}
	if got := norm.Apply(2.5); got != 1 {
		t.Errorf("Apply(2.5) = %d, want 1", got)
	}
}

// When the color count exceeds the bin count, bin indices spread over the
// color range with a truncating scale.
func TestExtendedNorm_ScaledToLargeColormap(t *testing.T) {
	norm, err := NewExtendedNorm([]float64{1, 2, 3, 4}, 256, ExtendBoth)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		value float64
		want  int
	}{
		{0, -1},
		{1.5, 63},
		{2.5, 127},
		{3.5, 191},
		{5, 256},
	}
	for _, c := range cases {
		if got := norm.Apply(c.value); got != c.want {
			t.Errorf("Apply(%g) = %d, want %d", c.value, got, c.want)
		}
	}

	norm, err = NewExtendedNorm([]float64{1, 2, 3}, 256, ExtendNeither)
	if err != nil {
		t.Fatal(err)
	}
	if got := norm.Apply(1.5); got != 0 {
		t.Errorf("Apply(1.5) = %d, want 0", got)
	}
	if got := norm.Apply(2.5); got != 255 {
		t.Errorf("Apply(2.5) = %d, want 255", got)
	}
}

func TestExtendedNorm_NaN(t *testing.T) {
	norm, err := NewExtendedNorm([]float64{0, 1, 2}, 2, ExtendNeither)
	if err != nil {
		t.Fatal(err)
	}
	if got := norm.Apply(math.NaN()); got != BadIndex {
		t.Errorf("Apply(NaN) = %d, want BadIndex", got)
	}

	got := norm.ApplyAll([]float64{math.NaN(), 0.5, 1.5})
	want := []int{BadIndex, 0, 1}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("ApplyAll[%d] = %d, want %d", k, got[k], want[k])
		}
	}
}

func TestExtendedNorm_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		levels  []float64
		ncolors int
		extend  Extend
	}{
		{"too few levels", []float64{1}, 2, ExtendNeither},
		{"not increasing", []float64{1, 1, 2}, 2, ExtendNeither},
		{"decreasing", []float64{3, 2, 1}, 2, ExtendNeither},
		{"too few colors", []float64{1, 2, 3}, 1, ExtendNeither},
		{"too few colors with extend", []float64{1, 2, 3}, 2, ExtendBoth},
		{"bad extend", []float64{1, 2, 3}, 2, Extend("sideways")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := NewExtendedNorm(c.levels, c.ncolors, c.extend); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
