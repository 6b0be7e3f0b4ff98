package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueAtRisk(t *testing.T) {
	tests := []struct {
		name       string
		impacts    []float64
		confidence float64
		want       float64
		tolerance  float64
	}{
		{
			name:       "uniform spread of losses",
			impacts:    []float64{-0.10, -0.20, -0.30, -0.40, -0.50},
			confidence: 0.95,
			want:       0.48, // p95 of losses {0.1..0.5}
			tolerance:  1e-9,
		},
		{
			name:       "all zero impacts",
			impacts:    []float64{0, 0, 0, 0},
			confidence: 0.95,
			want:       0,
			tolerance:  1e-12,
		},
		{
			name:       "single trial",
			impacts:    []float64{-0.3},
			confidence: 0.95,
			want:       0.3,
			tolerance:  1e-12,
		},
		{
			name:       "all gains gives negative loss quantile",
			impacts:    []float64{0.1, 0.2, 0.3},
			confidence: 0.95,
			want:       -0.11,
			tolerance:  1e-9,
		},
		{
			name:       "empty",
			impacts:    nil,
			confidence: 0.95,
			want:       0,
			tolerance:  1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ValueAtRisk(tt.impacts, tt.confidence), tt.tolerance)
		})
	}
}

func TestConditionalValueAtRisk(t *testing.T) {
	t.Run("degenerate sample collapses to VaR", func(t *testing.T) {
		impacts := []float64{-0.25, -0.25, -0.25}
		v := ValueAtRisk(impacts, 0.95)
		cv := ConditionalValueAtRisk(impacts, 0.95)
		assert.InDelta(t, 0.25, v, 1e-12)
		assert.InDelta(t, v, cv, 1e-12)
	})

	t.Run("tail mean beyond threshold", func(t *testing.T) {
		// Losses: 0.1 .. 1.0. VaR at 80% = 0.82 (interpolated); tail
		// members are 0.9 and 1.0.
		impacts := []float64{-0.1, -0.2, -0.3, -0.4, -0.5, -0.6, -0.7, -0.8, -0.9, -1.0}
		cv := ConditionalValueAtRisk(impacts, 0.80)
		assert.InDelta(t, 0.95, cv, 1e-9)
	})

	t.Run("single trial", func(t *testing.T) {
		assert.InDelta(t, 0.3, ConditionalValueAtRisk([]float64{-0.3}, 0.95), 1e-12)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, ConditionalValueAtRisk(nil, 0.95))
	})
}

func TestCVaRAtLeastVaR(t *testing.T) {
	// Loss-magnitude ordering must hold for any non-degenerate sample.
	samples := [][]float64{
		{-0.10, -0.05, -0.02, 0.0, 0.02, 0.05, 0.10, 0.15, 0.20, 0.25},
		{-0.30, -0.20, -0.10, 0.0, 0.10, 0.20, 0.30, 0.40, 0.50, 0.60},
		{-0.9, -0.5, -0.1, -0.05, 0.3},
	}

	for _, impacts := range samples {
		for _, conf := range []float64{0.90, 0.95, 0.99} {
			v := ValueAtRisk(impacts, conf)
			cv := ConditionalValueAtRisk(impacts, conf)
			assert.GreaterOrEqual(t, cv, v-1e-12,
				"CVaR loss magnitude must be >= VaR at confidence %v", conf)
		}
	}
}

func TestLosses(t *testing.T) {
	assert.Equal(t, []float64{0.1, -0.2, 0.0}, Losses([]float64{-0.1, 0.2, 0.0}))
}
