package formulas

// Risk statistics over terminal impact samples. Impacts are fractional
// changes of a domain metric (negative = loss); VaR and CVaR follow the
// loss-distribution convention where losses are reported as non-negative
// magnitudes, so loss = -impact.

// Losses converts impact samples to loss magnitudes.
func Losses(impacts []float64) []float64 {
	losses := make([]float64, len(impacts))
	for i, v := range impacts {
		losses[i] = -v
	}
	return losses
}

// ValueAtRisk returns the loss magnitude not exceeded with the given
// confidence probability: the empirical quantile of the loss distribution
// at `confidence` (e.g. 0.95), linearly interpolated between order
// statistics.
//
// A sample where every trial gains yields a negative VaR (the "loss" tail
// is itself a gain); callers that want a floored figure clamp it.
func ValueAtRisk(impacts []float64, confidence float64) float64 {
	if len(impacts) == 0 {
		return 0
	}
	return Percentile(Losses(impacts), confidence*100)
}

// ConditionalValueAtRisk returns the expected loss given that loss meets or
// exceeds the VaR threshold: the mean of all losses at or beyond VaR.
// Degenerate samples (all identical) collapse to VaR == CVaR.
func ConditionalValueAtRisk(impacts []float64, confidence float64) float64 {
	if len(impacts) == 0 {
		return 0
	}

	losses := Losses(impacts)
	threshold := Percentile(losses, confidence*100)

	sum := 0.0
	count := 0
	for _, l := range losses {
		if l >= threshold {
			sum += l
			count++
		}
	}
	if count == 0 {
		// Interpolated threshold above every sample; fall back to the
		// worst observed loss.
		return Percentile(losses, 100)
	}
	return sum / float64(count)
}
