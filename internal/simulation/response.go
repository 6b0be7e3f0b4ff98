package simulation

import (
	"math"
)

// MaxDayImpact caps the net fractional impact on any single day. Summed
// concurrent shocks (and spillover on top) are clamped to +/- this value to
// keep runaway stacking out of the trajectories.
const MaxDayImpact = 0.95

// SummaryFunc reduces a full trajectory to the trial's reported impact
// value. The default takes the final-day value; multi-metric deployments can
// plug in weighted combinations.
type SummaryFunc func(trajectory []float64) float64

// TerminalImpact is the default trajectory summary: the value at the last
// day of the horizon.
func TerminalImpact(trajectory []float64) float64 {
	if len(trajectory) == 0 {
		return 0
	}
	return trajectory[len(trajectory)-1]
}

// DirectResponse maps a domain's shock set into its per-day direct impact
// trajectory, before any cross-domain spillover.
//
// While a shock's window [onset, onset+duration) is active it contributes
// magnitude * sensitivity(category) / resilience each day. Once the window
// ends the contribution decays exponentially toward baseline at the domain's
// recovery rate (scaled by the shock's decay factor), modeling the lag in
// real-world metric recovery. Windows running past the horizon are simply
// truncated.
func DirectResponse(profile DomainResponseProfile, shocks []Shock, horizonDays int) []float64 {
	trajectory := make([]float64, horizonDays)
	if len(shocks) == 0 {
		return trajectory
	}

	for day := 0; day < horizonDays; day++ {
		total := 0.0
		for _, s := range shocks {
			total += shockContribution(profile, s, day)
		}
		trajectory[day] = clamp(total, -MaxDayImpact, MaxDayImpact)
	}
	return trajectory
}

// shockContribution is one shock's impact on one day.
func shockContribution(profile DomainResponseProfile, s Shock, day int) float64 {
	sensitivity, ok := profile.Sensitivity[s.Category]
	if !ok || sensitivity == 0 || s.Magnitude == 0 {
		return 0
	}
	if day < s.OnsetDay {
		return 0
	}

	peak := s.Magnitude * sensitivity / profile.Resilience
	end := s.OnsetDay + s.Duration
	if day < end {
		return peak
	}

	rate := profile.RecoveryRate * s.Decay
	return peak * math.Exp(-rate*float64(day-end))
}

// ApplySpillover runs the cross-domain second pass: each domain's trajectory
// additionally receives spillover_weight[source] * the source's same-day
// direct contribution. Direct responses for all domains must be fully
// computed before this pass so the result does not depend on domain
// iteration order.
//
// Sources outside the run's scope carry no trajectory and contribute
// nothing. The combined day value is re-clamped to the impact cap.
func ApplySpillover(direct map[string][]float64, profiles map[string]DomainResponseProfile, horizonDays int) map[string][]float64 {
	final := make(map[string][]float64, len(direct))

	for key, own := range direct {
		profile := profiles[key]
		combined := make([]float64, horizonDays)
		copy(combined, own)

		for source, weight := range profile.Spillover {
			if weight == 0 {
				continue
			}
			sourceTrajectory, ok := direct[source]
			if !ok {
				continue
			}
			for day := 0; day < horizonDays && day < len(sourceTrajectory); day++ {
				combined[day] += weight * sourceTrajectory[day]
			}
		}

		for day := range combined {
			combined[day] = clamp(combined[day], -MaxDayImpact, MaxDayImpact)
		}
		final[key] = combined
	}
	return final
}
