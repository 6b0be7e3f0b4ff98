package simulation

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// DistributionKind selects the sampling logic for a template's magnitude.
// The set is closed: each kind has one sampling branch and one quantile
// branch, dispatched by switch.
type DistributionKind string

const (
	// DistLognormal draws a loss severity exp(N(Mu, Sigma)); suited to
	// market shocks with heavy right tails. The sampled magnitude is the
	// negated severity.
	DistLognormal DistributionKind = "lognormal"
	// DistBernoulliBeta gates a Beta(Alpha, Beta) severity draw behind an
	// occurrence probability; suited to discrete policy events that either
	// land or don't.
	DistBernoulliBeta DistributionKind = "bernoulli_beta"
	// DistFixed always yields Value, taken verbatim (not clipped), for
	// deterministic custom shocks.
	DistFixed DistributionKind = "fixed"
	// DistUniform draws uniformly from [Min, Max].
	DistUniform DistributionKind = "uniform"
)

// MagnitudeDistribution holds the per-kind parameters. Only the fields for
// the declared kind are read.
type MagnitudeDistribution struct {
	Kind DistributionKind `json:"kind" yaml:"kind"`

	// Lognormal parameters (log-space location and scale).
	Mu    float64 `json:"mu,omitempty" yaml:"mu,omitempty"`
	Sigma float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`

	// Bernoulli-gated Beta parameters.
	Gate  float64 `json:"gate,omitempty" yaml:"gate,omitempty"`
	Alpha float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	Beta  float64 `json:"beta,omitempty" yaml:"beta,omitempty"`

	// Fixed value.
	Value float64 `json:"value,omitempty" yaml:"value,omitempty"`

	// Uniform range.
	Min float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Validate rejects inconsistent distribution parameters. This runs at
// catalog/template build time, never per trial.
func (d MagnitudeDistribution) Validate() error {
	switch d.Kind {
	case DistLognormal:
		if d.Sigma <= 0 || math.IsNaN(d.Sigma) || math.IsInf(d.Sigma, 0) {
			return fmt.Errorf("lognormal sigma must be > 0, got %v", d.Sigma)
		}
		if math.IsNaN(d.Mu) || math.IsInf(d.Mu, 0) {
			return fmt.Errorf("lognormal mu must be finite, got %v", d.Mu)
		}
	case DistBernoulliBeta:
		if d.Gate < 0 || d.Gate > 1 || math.IsNaN(d.Gate) {
			return fmt.Errorf("bernoulli gate must be in [0, 1], got %v", d.Gate)
		}
		if d.Alpha <= 0 || d.Beta <= 0 {
			return fmt.Errorf("beta shape parameters must be > 0, got alpha=%v beta=%v", d.Alpha, d.Beta)
		}
	case DistFixed:
		if math.IsNaN(d.Value) || math.IsInf(d.Value, 0) {
			return fmt.Errorf("fixed value must be finite, got %v", d.Value)
		}
	case DistUniform:
		if d.Min > d.Max {
			return fmt.Errorf("uniform range inverted: min=%v > max=%v", d.Min, d.Max)
		}
		if math.IsNaN(d.Min) || math.IsNaN(d.Max) {
			return fmt.Errorf("uniform bounds must be finite")
		}
	default:
		return fmt.Errorf("unknown distribution kind %q", d.Kind)
	}
	return nil
}

// ShockTemplate is the immutable sampling recipe for one shock type.
type ShockTemplate struct {
	ID       string        `json:"id" yaml:"id"`
	Category ShockCategory `json:"category" yaml:"category"`

	Distribution MagnitudeDistribution `json:"distribution" yaml:"distribution"`

	// Probability of the shock occurring in a given trial; 1 means it is
	// drawn every trial.
	Probability float64 `json:"probability" yaml:"probability"`

	// Magnitude bounds random draws are clipped to. Zero values default to
	// [-1, 0] (adverse fractional impact).
	MagnitudeMin float64 `json:"magnitude_min" yaml:"magnitude_min"`
	MagnitudeMax float64 `json:"magnitude_max" yaml:"magnitude_max"`

	// Duration range in days, inclusive.
	DurationMin int `json:"duration_min" yaml:"duration_min"`
	DurationMax int `json:"duration_max" yaml:"duration_max"`

	// Decay scales the domain recovery rate after the active window;
	// zero defaults to 1.
	Decay float64 `json:"decay,omitempty" yaml:"decay,omitempty"`

	// CorrelationGroup ties this template to a shared systemic factor.
	// Templates without a group stay independent.
	CorrelationGroup string `json:"correlation_group,omitempty" yaml:"correlation_group,omitempty"`

	// ForceOnsetStart pins the onset to day 0 instead of drawing it
	// uniformly over the horizon.
	ForceOnsetStart bool `json:"force_onset_start,omitempty" yaml:"force_onset_start,omitempty"`
}

// withDefaults fills zero-value fields with their documented defaults.
func (t ShockTemplate) withDefaults() ShockTemplate {
	if t.MagnitudeMin == 0 && t.MagnitudeMax == 0 {
		t.MagnitudeMin, t.MagnitudeMax = -1, 0
	}
	if t.Probability == 0 {
		t.Probability = 1
	}
	if t.Decay == 0 {
		t.Decay = 1
	}
	if t.DurationMin == 0 && t.DurationMax == 0 {
		t.DurationMin, t.DurationMax = 30, 180
	}
	return t
}

// Validate rejects malformed templates at build time.
func (t ShockTemplate) Validate() error {
	if t.ID == "" {
		return &ValidationError{Field: "template.id", Reason: "must not be empty"}
	}
	switch t.Category {
	case CategoryPolicy, CategoryMarket, CategoryNatural, CategoryComposite:
	default:
		return &ValidationError{
			Field:  fmt.Sprintf("template[%s].category", t.ID),
			Reason: fmt.Sprintf("unknown category %q", t.Category),
		}
	}
	if err := t.Distribution.Validate(); err != nil {
		return &ValidationError{
			Field:  fmt.Sprintf("template[%s].distribution", t.ID),
			Reason: err.Error(),
		}
	}
	if t.Probability < 0 || t.Probability > 1 {
		return &ValidationError{
			Field:  fmt.Sprintf("template[%s].probability", t.ID),
			Reason: "must be in [0, 1]",
		}
	}
	if t.MagnitudeMin > t.MagnitudeMax {
		return &ValidationError{
			Field:  fmt.Sprintf("template[%s].magnitude_bounds", t.ID),
			Reason: "min must be <= max",
		}
	}
	if t.DurationMin <= 0 || t.DurationMax < t.DurationMin {
		return &ValidationError{
			Field:  fmt.Sprintf("template[%s].duration", t.ID),
			Reason: "range must satisfy 0 < min <= max",
		}
	}
	if t.Decay < 0 {
		return &ValidationError{
			Field:  fmt.Sprintf("template[%s].decay", t.ID),
			Reason: "must be >= 0",
		}
	}
	return nil
}

// Catalog is the registry of named shock templates. It is populated at setup
// time and read-only during simulation.
type Catalog struct {
	templates map[string]ShockTemplate
	log       zerolog.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog(log zerolog.Logger) *Catalog {
	return &Catalog{
		templates: make(map[string]ShockTemplate),
		log:       log.With().Str("component", "shock_catalog").Logger(),
	}
}

// Register validates and stores a template. Duplicate IDs are rejected so a
// preset file cannot silently shadow a canonical template.
func (c *Catalog) Register(t ShockTemplate) error {
	t = t.withDefaults()
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := c.templates[t.ID]; exists {
		return &ValidationError{
			Field:  fmt.Sprintf("template[%s].id", t.ID),
			Reason: "already registered",
		}
	}
	c.templates[t.ID] = t
	c.log.Debug().Str("template", t.ID).Str("category", string(t.Category)).Msg("registered shock template")
	return nil
}

// Get returns a template by ID.
func (c *Catalog) Get(id string) (ShockTemplate, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// Resolve maps template IDs to templates, failing on the first unknown ID.
func (c *Catalog) Resolve(ids []string) ([]ShockTemplate, error) {
	out := make([]ShockTemplate, 0, len(ids))
	for _, id := range ids {
		t, ok := c.templates[id]
		if !ok {
			return nil, &ValidationError{
				Field:  "templates",
				Reason: fmt.Sprintf("unknown shock template %q", id),
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// IDs lists registered template IDs in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultCatalog builds the canonical shock catalog.
func DefaultCatalog(log zerolog.Logger) *Catalog {
	c := NewCatalog(log)
	for _, t := range builtinTemplates() {
		// Built-ins are code constants; a registration failure here is a
		// programming error.
		if err := c.Register(t); err != nil {
			panic(fmt.Sprintf("builtin shock template %s: %v", t.ID, err))
		}
	}
	return c
}

// builtinTemplates returns the canonical shock set. Magnitudes are adverse
// fractional impacts; duration ranges follow the historical episodes each
// template is modeled on.
func builtinTemplates() []ShockTemplate {
	return []ShockTemplate{
		{
			ID:               "recession",
			Category:         CategoryMarket,
			Distribution:     MagnitudeDistribution{Kind: DistLognormal, Mu: -1.5, Sigma: 0.5},
			Probability:      1,
			MagnitudeMin:     -0.9,
			MagnitudeMax:     0,
			DurationMin:      90,
			DurationMax:      365,
			CorrelationGroup: "macro",
		},
		{
			ID:               "regulatory_tightening",
			Category:         CategoryPolicy,
			Distribution:     MagnitudeDistribution{Kind: DistBernoulliBeta, Gate: 0.7, Alpha: 2, Beta: 5},
			Probability:      1,
			MagnitudeMin:     -0.8,
			MagnitudeMax:     0,
			DurationMin:      60,
			DurationMax:      365,
			CorrelationGroup: "regulatory",
		},
		{
			ID:               "pandemic",
			Category:         CategoryNatural,
			Distribution:     MagnitudeDistribution{Kind: DistLognormal, Mu: -1.2, Sigma: 0.6},
			Probability:      1,
			MagnitudeMin:     -1,
			MagnitudeMax:     0,
			DurationMin:      180,
			DurationMax:      730,
			CorrelationGroup: "macro",
			Decay:            0.5, // recovery from pandemics is slower than the domain baseline
		},
		{
			ID:               "trade_conflict",
			Category:         CategoryPolicy,
			Distribution:     MagnitudeDistribution{Kind: DistBernoulliBeta, Gate: 0.6, Alpha: 2, Beta: 4},
			Probability:      1,
			MagnitudeMin:     -0.7,
			MagnitudeMax:     0,
			DurationMin:      90,
			DurationMax:      365,
			CorrelationGroup: "macro",
		},
		{
			ID:               "liquidity_crisis",
			Category:         CategoryMarket,
			Distribution:     MagnitudeDistribution{Kind: DistLognormal, Mu: -1.0, Sigma: 0.7},
			Probability:      1,
			MagnitudeMin:     -1,
			MagnitudeMax:     0,
			DurationMin:      30,
			DurationMax:      120,
			CorrelationGroup: "macro",
			Decay:            2, // liquidity snaps back faster than real-economy shocks
		},
		{
			ID:           "natural_disaster",
			Category:     CategoryNatural,
			Distribution: MagnitudeDistribution{Kind: DistBernoulliBeta, Gate: 0.4, Alpha: 1.5, Beta: 4},
			Probability:  1,
			MagnitudeMin: -0.7,
			MagnitudeMax: 0,
			DurationMin:  7,
			DurationMax:  60,
		},
		{
			ID:               "black_swan",
			Category:         CategoryComposite,
			Distribution:     MagnitudeDistribution{Kind: DistLognormal, Mu: -0.5, Sigma: 0.9},
			Probability:      1,
			MagnitudeMin:     -1,
			MagnitudeMax:     0,
			DurationMin:      30,
			DurationMax:      365,
			CorrelationGroup: "macro",
		},
	}
}
