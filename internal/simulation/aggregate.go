package simulation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/foresight/pkg/formulas"
)

// percentileLevels are the distribution cut points reported per domain.
var percentileLevels = []float64{5, 25, 50, 75, 95}

// Aggregator reduces the per-trial terminal impacts into per-domain
// distribution statistics.
type Aggregator struct {
	log zerolog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log: log.With().Str("component", "scenario_aggregator").Logger(),
	}
}

// Aggregate computes mean, standard deviation, percentiles, and tail-risk
// measures per domain across the successful trials. Failed or unscheduled
// trials are excluded so a partial run still aggregates cleanly; with zero
// successful trials it returns ErrEmptyResult.
func (a *Aggregator) Aggregate(outcomes []TrialOutcome, domains []string, confidence float64) (map[string]DomainStatistics, error) {
	completed := 0
	for _, o := range outcomes {
		if o.Status == TrialOK {
			completed++
		}
	}
	if completed == 0 {
		return nil, fmt.Errorf("no successful trials to aggregate: %w", ErrEmptyResult)
	}

	stats := make(map[string]DomainStatistics, len(domains))
	for _, key := range domains {
		impacts := make([]float64, 0, completed)
		for _, o := range outcomes {
			if o.Status != TrialOK {
				continue
			}
			impacts = append(impacts, o.Terminal[key])
		}

		percentiles := make(map[string]float64, len(percentileLevels))
		for level, value := range formulas.Percentiles(impacts, percentileLevels) {
			percentiles[fmt.Sprintf("p%g", level)] = value
		}

		stats[key] = DomainStatistics{
			Mean:        formulas.Mean(impacts),
			StdDev:      formulas.StdDev(impacts),
			Percentiles: percentiles,
			VaR:         formulas.ValueAtRisk(impacts, confidence),
			CVaR:        formulas.ConditionalValueAtRisk(impacts, confidence),
		}
	}

	a.log.Debug().
		Int("trials", completed).
		Int("domains", len(stats)).
		Msg("aggregated trial outcomes")
	return stats, nil
}
