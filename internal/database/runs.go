package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/foresight/internal/simulation"
)

// ErrRunNotFound is returned when a run ID has no stored record.
var ErrRunNotFound = errors.New("scenario run not found")

// RunRecord is one archived scenario run: searchable summary columns plus
// the full result as JSON.
type RunRecord struct {
	RunID        string
	Scenario     string
	Status       simulation.RunStatus
	Seed         uint64
	Iterations   int
	HorizonDays  int
	FailedTrials int
	CreatedAt    time.Time
	Result       simulation.ScenarioResult
}

// RunRepository stores scenario run results in SQLite.
type RunRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewRunRepository creates the repository and ensures its schema exists.
func NewRunRepository(db *DB, log zerolog.Logger) (*RunRepository, error) {
	r := &RunRepository{
		db:  db,
		log: log.With().Str("component", "run_repository").Logger(),
	}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RunRepository) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scenario_runs (
			run_id        TEXT PRIMARY KEY,
			scenario      TEXT NOT NULL,
			status        TEXT NOT NULL,
			seed          INTEGER NOT NULL,
			iterations    INTEGER NOT NULL,
			horizon_days  INTEGER NOT NULL,
			failed_trials INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL,
			result_json   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scenario_runs_created_at
			ON scenario_runs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_scenario_runs_scenario
			ON scenario_runs(scenario);
	`
	if _, err := r.db.Conn().Exec(schema); err != nil {
		return fmt.Errorf("failed to create scenario_runs schema: %w", err)
	}
	return nil
}

// Save archives a completed (or partially completed) run result.
func (r *RunRepository) Save(ctx context.Context, result *simulation.ScenarioResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize result %s: %w", result.Metadata.RunID, err)
	}

	query := `
		INSERT INTO scenario_runs
			(run_id, scenario, status, seed, iterations, horizon_days, failed_trials, created_at, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Conn().ExecContext(ctx, query,
		result.Metadata.RunID,
		result.Parameters.Name,
		string(result.Status),
		int64(result.Metadata.Seed),
		result.Metadata.Iterations,
		result.Parameters.HorizonDays,
		result.Metadata.FailedTrials,
		result.Metadata.StartedAt.UTC().Format(time.RFC3339Nano),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.Metadata.RunID, err)
	}

	r.log.Info().
		Str("run_id", result.Metadata.RunID).
		Str("scenario", result.Parameters.Name).
		Msg("archived scenario run")
	return nil
}

// GetByRunID loads one archived run.
func (r *RunRepository) GetByRunID(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
		SELECT run_id, scenario, status, seed, iterations, horizon_days, failed_trials, created_at, result_json
		FROM scenario_runs
		WHERE run_id = ?
	`
	record, err := scanRun(r.db.Conn().QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return record, nil
}

// ListRecent returns the newest runs, most recent first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, scenario, status, seed, iterations, horizon_days, failed_trials, created_at, result_json
		FROM scenario_runs
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return records, nil
}

// Delete removes an archived run.
func (r *RunRepository) Delete(ctx context.Context, runID string) error {
	res, err := r.db.Conn().ExecContext(ctx, "DELETE FROM scenario_runs WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for %s: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		record    RunRecord
		status    string
		seed      int64
		createdAt string
		payload   string
	)
	err := row.Scan(
		&record.RunID,
		&record.Scenario,
		&status,
		&seed,
		&record.Iterations,
		&record.HorizonDays,
		&record.FailedTrials,
		&createdAt,
		&payload,
	)
	if err != nil {
		return nil, err
	}

	record.Status = simulation.RunStatus(status)
	record.Seed = uint64(seed)
	if record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("malformed created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(payload), &record.Result); err != nil {
		return nil, fmt.Errorf("malformed result payload: %w", err)
	}
	return &record, nil
}
