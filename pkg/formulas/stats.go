package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values.
// Fewer than two observations have no spread.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Percentile returns the p-th percentile (0-100) of data using linear
// interpolation between order statistics: the value at fractional rank
// p/100 * (n-1) in the sorted sample. A single observation is every
// percentile of itself.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	return percentileSorted(sorted, p)
}

// Percentiles evaluates several percentile levels against one sample,
// sorting only once.
func Percentiles(data []float64, levels []float64) map[float64]float64 {
	out := make(map[float64]float64, len(levels))
	if len(data) == 0 {
		for _, p := range levels {
			out[p] = 0
		}
		return out
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	for _, p := range levels {
		out[p] = percentileSorted(sorted, p)
	}
	return out
}

func percentileSorted(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	frac := rank - float64(lower)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}
