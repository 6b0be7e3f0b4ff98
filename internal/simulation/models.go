// Package simulation implements the Monte Carlo scenario engine: correlated
// shock sampling, time-decayed domain response trajectories, parallel trial
// execution and reduction into risk-distribution statistics.
package simulation

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for run-level failure modes.
var (
	// ErrEmptyResult is returned when aggregation is attempted with zero
	// successful trial outcomes.
	ErrEmptyResult = errors.New("no successful trials to aggregate")

	// ErrRunFailed is returned when a run aborts under fail-fast policy.
	ErrRunFailed = errors.New("scenario run failed")

	// ErrRunCancelled is returned when the caller cancels an in-flight run.
	// The partial outcome set is still returned alongside it.
	ErrRunCancelled = errors.New("scenario run cancelled")
)

// ValidationError names the offending parameter field, so callers can surface
// configuration mistakes without string matching.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ShockCategory classifies shock templates for sensitivity lookup.
type ShockCategory string

const (
	CategoryPolicy    ShockCategory = "policy"
	CategoryMarket    ShockCategory = "market"
	CategoryNatural   ShockCategory = "natural"
	CategoryComposite ShockCategory = "composite"
)

// Shock is one sampled exogenous event instance. It is created per trial,
// owned by that trial, and discarded once the trajectory is computed.
type Shock struct {
	TemplateID string        `json:"template_id"`
	Category   ShockCategory `json:"category"`
	// Magnitude is the fractional impact in the template's declared bounds
	// (negative = adverse).
	Magnitude float64 `json:"magnitude"`
	OnsetDay  int     `json:"onset_day"`
	Duration  int     `json:"duration_days"`
	// Decay scales the domain's recovery rate for this shock once the
	// active window ends.
	Decay float64 `json:"decay"`
}

// DomainResponseProfile describes how a domain reacts to shocks. Profiles are
// configured once and read-only during simulation.
type DomainResponseProfile struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	// Resilience dampens all shock magnitudes; must be > 0.
	Resilience float64 `json:"resilience"`
	// RecoveryRate controls exponential decay toward baseline after a
	// shock's active window (per day).
	RecoveryRate float64 `json:"recovery_rate"`
	// Sensitivity multiplies shock magnitudes per category. A category
	// missing from the map does not affect the domain at all.
	Sensitivity map[ShockCategory]float64 `json:"sensitivity"`
	// Spillover weights propagate other domains' same-day contributions
	// into this domain, keyed by source domain.
	Spillover map[string]float64 `json:"spillover,omitempty"`
}

// Validate checks profile invariants.
func (p DomainResponseProfile) Validate() error {
	if p.Key == "" {
		return &ValidationError{Field: "profile.key", Reason: "must not be empty"}
	}
	if p.Resilience <= 0 {
		return &ValidationError{
			Field:  fmt.Sprintf("profile[%s].resilience", p.Key),
			Reason: "must be > 0",
		}
	}
	if p.RecoveryRate < 0 {
		return &ValidationError{
			Field:  fmt.Sprintf("profile[%s].recovery_rate", p.Key),
			Reason: "must be >= 0",
		}
	}
	for key, w := range p.Spillover {
		if key == p.Key {
			return &ValidationError{
				Field:  fmt.Sprintf("profile[%s].spillover", p.Key),
				Reason: "must not reference itself",
			}
		}
		if w < 0 || w > 1 {
			return &ValidationError{
				Field:  fmt.Sprintf("profile[%s].spillover[%s]", p.Key, key),
				Reason: "weight must be in [0, 1]",
			}
		}
	}
	return nil
}

// ScenarioParameters configures one simulation run.
type ScenarioParameters struct {
	Name string `json:"name"`
	// Domains selects the resilience profiles in scope; more than one key
	// makes this a portfolio run with cross-domain spillover.
	Domains     []string `json:"domains"`
	Iterations  int      `json:"iterations"`
	HorizonDays int      `json:"horizon_days"`
	// Seed makes the run reproducible. When nil a seed is drawn at
	// validation time and echoed in the result metadata.
	Seed *uint64 `json:"seed,omitempty"`
	// Confidence for VaR/CVaR; zero means the 0.95 default.
	Confidence float64 `json:"confidence,omitempty"`
	// Templates is the scenario's shock set, one sampled instance per
	// template per trial. Empty means a zero-shock baseline run.
	Templates []ShockTemplate `json:"templates,omitempty"`
	// Correlation is a symmetric positive semi-definite matrix indexed
	// like Templates. Nil means independent shocks.
	Correlation [][]float64 `json:"correlation,omitempty"`
	// CustomShocks are force-included verbatim in every trial.
	CustomShocks []Shock `json:"custom_shocks,omitempty"`
	// ContinueOnError records failed trials and keeps going instead of
	// aborting the whole run on the first failure.
	ContinueOnError bool `json:"continue_on_error"`
	// KeepTrajectories retains per-day trajectories on trial outcomes for
	// diagnostics. Costs O(iterations * domains * horizon) memory.
	KeepTrajectories bool `json:"keep_trajectories,omitempty"`
}

// TrialStatus marks the resolution of a single trial.
type TrialStatus string

const (
	TrialOK     TrialStatus = "ok"
	TrialFailed TrialStatus = "failed"
)

// Failure reasons recorded on trial outcomes.
const (
	ReasonNumericInstability  = "numeric-instability"
	ReasonMagnitudeOutOfRange = "magnitude-out-of-range"
)

// TrialOutcome is the immutable result of one Monte Carlo trial.
type TrialOutcome struct {
	Trial    int                `json:"trial"`
	Status   TrialStatus        `json:"status"`
	Reason   string             `json:"reason,omitempty"`
	Terminal map[string]float64 `json:"terminal,omitempty"`
	// Trajectories are only populated when the run requests diagnostics.
	Trajectories map[string][]float64 `json:"trajectories,omitempty"`
}

// RunStatus is the terminal state of a scenario run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// DomainStatistics is the per-domain reduction of terminal impacts across
// successful trials. All fields are JSON-friendly plain numbers so the
// result can cross the engine boundary untouched.
type DomainStatistics struct {
	Mean        float64            `json:"mean"`
	StdDev      float64            `json:"std_dev"`
	Percentiles map[string]float64 `json:"percentiles"`
	VaR         float64            `json:"var"`
	CVaR        float64            `json:"cvar"`
}

// RunMetadata describes how the run went, including the trial failure
// accounting that must never be silently dropped.
type RunMetadata struct {
	RunID           string         `json:"run_id"`
	Seed            uint64         `json:"seed"`
	Iterations      int            `json:"iterations"`
	CompletedTrials int            `json:"completed_trials"`
	FailedTrials    int            `json:"failed_trials"`
	FailureReasons  map[string]int `json:"failure_reasons,omitempty"`
	Workers         int            `json:"workers"`
	StartedAt       time.Time      `json:"started_at"`
	ElapsedMs       int64          `json:"elapsed_ms"`
}

// ScenarioResult is the engine's only output: per-domain risk statistics
// plus an echo of the input parameters and run metadata.
type ScenarioResult struct {
	Status     RunStatus                   `json:"status"`
	Domains    map[string]DomainStatistics `json:"domains"`
	Confidence float64                     `json:"confidence"`
	Parameters ScenarioParameters          `json:"parameters"`
	Metadata   RunMetadata                 `json:"metadata"`
}
