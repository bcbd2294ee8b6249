package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeSizeStats(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	got := ComputeSizeStats(values)

	want := SizeStats{Mean: 0.55, Std: math.Sqrt(0.0825), P10: 0.19, P50: 0.55, P90: 0.91}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"Mean", got.Mean, want.Mean},
		{"Std", got.Std, want.Std},
		{"P10", got.P10, want.P10},
		{"P50", got.P50, want.P50},
		{"P90", got.P90, want.P90},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 0.001 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestComputeSizeStatsLeavesInputUnsorted(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeSizeStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("values = %v, want input order kept", values)
	}
}

func TestComputeSizeStatsEmpty(t *testing.T) {
	if got := ComputeSizeStats(nil); got != (SizeStats{}) {
		t.Errorf("ComputeSizeStats(nil) = %+v, want zero", got)
	}
}
