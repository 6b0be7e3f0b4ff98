package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.5}, 0.5},
		{"symmetric", []float64{-0.2, 0.0, 0.2}, 0.0},
		{"negative impacts", []float64{-0.1, -0.3}, -0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Mean(tt.data), 1e-12)
		})
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single observation has no spread", []float64{0.4}, 0},
		{"identical values", []float64{-0.1, -0.1, -0.1}, 0},
		{"known sample", []float64{1, 2, 3, 4, 5}, 1.5811388300841898},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, StdDev(tt.data), 1e-9)
		})
	}
}

func TestPercentile(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"minimum", 0, 10},
		{"maximum", 100, 50},
		{"median", 50, 30},
		{"interpolated p25", 25, 20},
		{"interpolated p95", 95, 48},
		{"interpolated p5", 5, 12},
		{"below range clamps", -10, 10},
		{"above range clamps", 150, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(data, tt.p), 1e-9)
		})
	}
}

func TestPercentile_SingleValue(t *testing.T) {
	for _, p := range []float64{5, 25, 50, 75, 95} {
		assert.InDelta(t, -0.42, Percentile([]float64{-0.42}, p), 1e-12,
			"single observation should be every percentile of itself")
	}
}

func TestPercentile_UnsortedInput(t *testing.T) {
	shuffled := []float64{40, 10, 50, 30, 20}
	assert.InDelta(t, 30, Percentile(shuffled, 50), 1e-9)
	// Input slice must not be reordered.
	assert.Equal(t, []float64{40, 10, 50, 30, 20}, shuffled)
}

func TestPercentiles(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50}
	got := Percentiles(data, []float64{5, 50, 95})

	assert.InDelta(t, 12, got[5], 1e-9)
	assert.InDelta(t, 30, got[50], 1e-9)
	assert.InDelta(t, 48, got[95], 1e-9)
}

func TestPercentiles_Empty(t *testing.T) {
	got := Percentiles(nil, []float64{5, 95})
	assert.Equal(t, 0.0, got[5])
	assert.Equal(t, 0.0, got[95])
}
