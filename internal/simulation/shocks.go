package simulation

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Generator samples concrete shock instances from templates. It holds no
// mutable state; every draw consumes only the random source passed in, so
// trials stay independently reproducible.
type Generator struct{}

// NewGenerator creates a shock generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Sample draws one shock from a template using the trial's random source.
// The magnitude is produced through the template's distribution and clipped
// to the declared bounds; fixed-value distributions are taken verbatim so a
// misconfigured constant surfaces as a trial failure instead of being
// silently clamped.
func (g *Generator) Sample(t ShockTemplate, rng *rand.Rand, horizonDays int) Shock {
	z := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}.Rand()
	return g.realize(t, z, rng, horizonDays)
}

// SampleSet draws one shock per template for a single trial, routing the
// standard-normal latents through the correlation model so shocks sharing a
// correlation group co-move within the trial.
//
// The random source is consumed in a fixed order (latents, group factors,
// then per-template occurrence/onset/duration draws) so a trial is
// reproducible from its seed regardless of execution order.
func (g *Generator) SampleSet(templates []ShockTemplate, corr *CorrelationModel, rng *rand.Rand, horizonDays int) []Shock {
	if len(templates) == 0 {
		return nil
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	latents := make([]float64, len(templates))
	for i := range templates {
		latents[i] = normal.Rand()
	}
	if corr != nil {
		latents = corr.Correlate(latents, rng)
	}

	shocks := make([]Shock, 0, len(templates))
	for i, t := range templates {
		shocks = append(shocks, g.realize(t, latents[i], rng, horizonDays))
	}
	return shocks
}

// realize maps a standard-normal latent through the template's marginal
// distribution (inverse-CDF transform) and draws the remaining shock
// attributes.
func (g *Generator) realize(t ShockTemplate, latent float64, rng *rand.Rand, horizonDays int) Shock {
	u := distuv.UnitNormal.CDF(latent)
	magnitude := t.Distribution.quantile(u)

	// Random draws are clipped to the template bounds; fixed values are
	// trusted and verified per trial by the engine.
	if t.Distribution.Kind != DistFixed {
		magnitude = clamp(magnitude, t.MagnitudeMin, t.MagnitudeMax)
	}

	// Occurrence gate: a template with probability < 1 simply does not
	// fire in some trials.
	if t.Probability < 1 && rng.Float64() >= t.Probability {
		magnitude = 0
	}

	onset := 0
	if !t.ForceOnsetStart && horizonDays > 1 {
		onset = rng.IntN(horizonDays)
	}

	duration := t.DurationMin
	if t.DurationMax > t.DurationMin {
		duration += rng.IntN(t.DurationMax - t.DurationMin + 1)
	}

	return Shock{
		TemplateID: t.ID,
		Category:   t.Category,
		Magnitude:  magnitude,
		OnsetDay:   onset,
		Duration:   duration,
		Decay:      t.Decay,
	}
}

// quantile evaluates the distribution's inverse CDF at u in [0, 1].
// Severity distributions (lognormal, bernoulli-beta) measure loss size, so
// their quantiles are negated into adverse magnitudes; uniform and fixed are
// signed as configured.
func (d MagnitudeDistribution) quantile(u float64) float64 {
	// Guard the open interval; distuv quantiles are infinite at the edges.
	u = clamp(u, 1e-12, 1-1e-12)

	switch d.Kind {
	case DistLognormal:
		severity := distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma}.Quantile(u)
		return -severity
	case DistBernoulliBeta:
		// Mixture quantile: mass (1-Gate) at zero, Beta spread over the
		// remaining tail.
		if u < 1-d.Gate {
			return 0
		}
		severity := distuv.Beta{Alpha: d.Alpha, Beta: d.Beta}.Quantile((u - (1 - d.Gate)) / d.Gate)
		return -severity
	case DistUniform:
		return d.Min + u*(d.Max-d.Min)
	case DistFixed:
		return d.Value
	default:
		// Unreachable for validated templates.
		return math.NaN()
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
