package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultConfidence is the VaR/CVaR confidence level used when the
// parameters leave it unset.
const DefaultConfidence = 0.95

// Engine orchestrates scenario runs: it validates parameters, executes the
// trials across a worker pool, and reduces the outcomes into a
// ScenarioResult. The engine holds only read-only state; concurrent Run
// calls are safe.
type Engine struct {
	generator  *Generator
	aggregator *Aggregator
	profiles   map[string]DomainResponseProfile
	summary    SummaryFunc
	workers    int
	log        zerolog.Logger
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithWorkers sets the trial worker pool size. Values < 1 fall back to the
// CPU count.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithSummary replaces the trajectory summary function (default: value at
// the final day).
func WithSummary(f SummaryFunc) EngineOption {
	return func(e *Engine) {
		if f != nil {
			e.summary = f
		}
	}
}

// NewEngine creates a scenario engine over a snapshot of the supplied
// resilience profiles. The snapshot is taken at construction, so later
// registry changes never affect an in-flight run.
func NewEngine(profiles map[string]DomainResponseProfile, log zerolog.Logger, opts ...EngineOption) *Engine {
	snapshot := make(map[string]DomainResponseProfile, len(profiles))
	for k, v := range profiles {
		snapshot[k] = v
	}

	e := &Engine{
		generator:  NewGenerator(),
		aggregator: NewAggregator(log),
		profiles:   snapshot,
		summary:    TerminalImpact,
		workers:    runtime.NumCPU(),
		log:        log.With().Str("component", "scenario_engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a full scenario: validation, parallel trials, aggregation.
//
// Given the same parameters with an explicit seed the result is identical
// across runs and worker counts. On cancellation the partial outcome set is
// aggregated when at least one trial succeeded, the result carries the
// cancelled status, and ErrRunCancelled is returned so the caller decides
// whether to keep it.
func (e *Engine) Run(ctx context.Context, params ScenarioParameters) (*ScenarioResult, error) {
	templates, corr, err := e.validate(&params)
	if err != nil {
		return nil, err
	}
	seed := *params.Seed

	e.log.Info().
		Str("scenario", params.Name).
		Strs("domains", params.Domains).
		Int("iterations", params.Iterations).
		Int("horizon_days", params.HorizonDays).
		Uint64("seed", seed).
		Int("workers", e.workers).
		Msg("scenario run started")

	started := time.Now()
	runID := uuid.NewString()

	outcomes, failedFast := e.runTrials(ctx, params, templates, corr, seed)

	completed, failed, reasons := tally(outcomes)
	meta := RunMetadata{
		RunID:           runID,
		Seed:            seed,
		Iterations:      params.Iterations,
		CompletedTrials: completed,
		FailedTrials:    failed,
		FailureReasons:  reasons,
		Workers:         e.workers,
		StartedAt:       started.UTC(),
		ElapsedMs:       time.Since(started).Milliseconds(),
	}

	result := &ScenarioResult{
		Confidence: params.Confidence,
		Parameters: params,
		Metadata:   meta,
	}

	cancelled := ctx.Err() != nil

	switch {
	case failedFast:
		result.Status = RunFailed
		e.log.Error().
			Str("scenario", params.Name).
			Interface("failure_reasons", reasons).
			Msg("scenario run aborted on first trial failure")
		return result, fmt.Errorf("trial failure with continue-on-error disabled: %w", ErrRunFailed)

	case cancelled:
		result.Status = RunCancelled
		if stats, aggErr := e.aggregator.Aggregate(outcomes, params.Domains, params.Confidence); aggErr == nil {
			result.Domains = stats
		}
		e.log.Warn().
			Str("scenario", params.Name).
			Int("completed_trials", completed).
			Msg("scenario run cancelled")
		return result, ErrRunCancelled
	}

	stats, err := e.aggregator.Aggregate(outcomes, params.Domains, params.Confidence)
	if err != nil {
		result.Status = RunFailed
		e.log.Error().
			Str("scenario", params.Name).
			Int("failed_trials", failed).
			Msg("scenario run produced no successful trials")
		return result, err
	}

	result.Status = RunCompleted
	result.Domains = stats
	e.log.Info().
		Str("scenario", params.Name).
		Str("run_id", runID).
		Int("completed_trials", completed).
		Int("failed_trials", failed).
		Int64("elapsed_ms", meta.ElapsedMs).
		Msg("scenario run completed")
	return result, nil
}

// runTrials fans the trial indices out over the worker pool and waits for
// every scheduled trial to resolve before returning (the aggregation
// barrier). Under fail-fast the first failed trial cancels dispatch.
func (e *Engine) runTrials(ctx context.Context, params ScenarioParameters, templates []ShockTemplate, corr *CorrelationModel, seed uint64) ([]TrialOutcome, bool) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]TrialOutcome, params.Iterations)
	jobs := make(chan int)
	var failedFast atomic.Bool
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcome := e.runTrial(idx, seed, params, templates, corr)
				outcomes[idx] = outcome
				if outcome.Status == TrialFailed && !params.ContinueOnError {
					failedFast.Store(true)
					cancel()
				}
			}
		}()
	}

dispatch:
	for i := 0; i < params.Iterations; i++ {
		select {
		case <-runCtx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes, failedFast.Load()
}

// runTrial executes one deterministic trial. All randomness flows from the
// per-trial source derived from (seed, trial), so any single trial can be
// reproduced in isolation.
func (e *Engine) runTrial(trial int, seed uint64, params ScenarioParameters, templates []ShockTemplate, corr *CorrelationModel) TrialOutcome {
	rng := trialRand(seed, trial)

	direct := make(map[string][]float64, len(params.Domains))
	for _, key := range params.Domains {
		shocks := e.generator.SampleSet(templates, corr, rng, params.HorizonDays)
		if len(params.CustomShocks) > 0 {
			shocks = append(shocks, params.CustomShocks...)
		}

		for _, s := range shocks {
			if math.IsNaN(s.Magnitude) || math.IsInf(s.Magnitude, 0) || s.Magnitude < -1 || s.Magnitude > 1 {
				return TrialOutcome{
					Trial:  trial,
					Status: TrialFailed,
					Reason: ReasonMagnitudeOutOfRange,
				}
			}
		}

		direct[key] = DirectResponse(e.profiles[key], shocks, params.HorizonDays)
	}

	final := ApplySpillover(direct, e.profiles, params.HorizonDays)

	terminal := make(map[string]float64, len(params.Domains))
	for _, key := range params.Domains {
		v := e.summary(final[key])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return TrialOutcome{
				Trial:  trial,
				Status: TrialFailed,
				Reason: ReasonNumericInstability,
			}
		}
		terminal[key] = v
	}

	outcome := TrialOutcome{
		Trial:    trial,
		Status:   TrialOK,
		Terminal: terminal,
	}
	if params.KeepTrajectories {
		outcome.Trajectories = final
	}
	return outcome
}

// validate rejects malformed parameters before the run enters its running
// state, naming the offending field. It also applies documented defaults
// (confidence, template bounds, the backfilled seed) in place so the result
// echoes the effective configuration.
func (e *Engine) validate(params *ScenarioParameters) ([]ShockTemplate, *CorrelationModel, error) {
	if params.Iterations < 1 {
		return nil, nil, &ValidationError{Field: "iterations", Reason: "must be >= 1"}
	}
	if params.HorizonDays < 1 {
		return nil, nil, &ValidationError{Field: "horizon_days", Reason: "must be >= 1"}
	}
	if len(params.Domains) == 0 {
		return nil, nil, &ValidationError{Field: "domains", Reason: "must select at least one domain"}
	}
	seen := make(map[string]bool, len(params.Domains))
	for _, key := range params.Domains {
		if _, ok := e.profiles[key]; !ok {
			return nil, nil, &ValidationError{
				Field:  "domains",
				Reason: fmt.Sprintf("unknown domain key %q", key),
			}
		}
		if seen[key] {
			return nil, nil, &ValidationError{
				Field:  "domains",
				Reason: fmt.Sprintf("domain key %q listed twice", key),
			}
		}
		seen[key] = true
	}

	if params.Confidence == 0 {
		params.Confidence = DefaultConfidence
	}
	if params.Confidence <= 0 || params.Confidence >= 1 {
		return nil, nil, &ValidationError{Field: "confidence", Reason: "must be in (0, 1)"}
	}

	templates := make([]ShockTemplate, 0, len(params.Templates))
	for _, t := range params.Templates {
		t = t.withDefaults()
		if err := t.Validate(); err != nil {
			return nil, nil, err
		}
		templates = append(templates, t)
	}
	params.Templates = templates

	for i, s := range params.CustomShocks {
		if math.IsNaN(s.Magnitude) || s.Magnitude < -1 || s.Magnitude > 1 {
			return nil, nil, &ValidationError{
				Field:  fmt.Sprintf("custom_shocks[%d].magnitude", i),
				Reason: "must be in [-1, 1]",
			}
		}
		if s.Duration <= 0 {
			return nil, nil, &ValidationError{
				Field:  fmt.Sprintf("custom_shocks[%d].duration", i),
				Reason: "must be > 0",
			}
		}
		if s.OnsetDay < 0 || s.OnsetDay >= params.HorizonDays {
			return nil, nil, &ValidationError{
				Field:  fmt.Sprintf("custom_shocks[%d].onset_day", i),
				Reason: "must be within [0, horizon)",
			}
		}
	}

	corr, err := NewCorrelationModel(templates, params.Correlation)
	if err != nil {
		return nil, nil, err
	}

	// Backfill the seed so even "non-deterministic" runs are reproducible
	// from their reported metadata.
	if params.Seed == nil {
		seed := rand.Uint64()
		params.Seed = &seed
	}

	return templates, corr, nil
}

// trialRand derives the deterministic random source for one trial from the
// run's base seed and the trial index.
func trialRand(baseSeed uint64, trial int) *rand.Rand {
	return rand.New(rand.NewPCG(baseSeed, uint64(trial)))
}

// tally counts resolved trials and groups failure reasons. Trials never
// scheduled (cancelled runs) keep a zero-value status and are not counted.
func tally(outcomes []TrialOutcome) (completed, failed int, reasons map[string]int) {
	for _, o := range outcomes {
		switch o.Status {
		case TrialOK:
			completed++
		case TrialFailed:
			failed++
			if reasons == nil {
				reasons = make(map[string]int)
			}
			reasons[o.Reason]++
		}
	}
	return completed, failed, reasons
}
