// Package postgres provides a Postgres-backed run ledger.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okechukwu95dev/pitchindex/internal/ledger"
)

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Ledger writes run history rows into Postgres.
type Ledger struct {
	pool execCloser
}

// New creates a Postgres-backed ledger from a DSN.
func New(ctx context.Context, dsn string) (*Ledger, error) {
	if dsn == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Ledger{pool: pool}, nil
}

// NewWithPool constructs a ledger from an existing pool (primarily for testing).
func NewWithPool(pool execCloser) (*Ledger, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Ledger{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (l *Ledger) Close() {
	l.pool.Close()
}

// StartRun inserts the run row, tolerating a replayed start for the same id.
func (l *Ledger) StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	query := `
		INSERT INTO crawl_runs (id, started_at, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status
		WHERE crawl_runs.status <> EXCLUDED.status;
	`
	if _, err := l.pool.Exec(ctx, query, runID, startedAt, ledger.RunRunning); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// RecordLeague upserts the outcome row for one league. A league re-fetched on
// a later run replaces its previous outcome.
func (l *Ledger) RecordLeague(ctx context.Context, o ledger.LeagueOutcome) error {
	query := `
		INSERT INTO league_outcomes (run_id, country_id, league_id, status, is_cup, teams, attempts, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, country_id, league_id) DO UPDATE
		SET status = EXCLUDED.status,
			is_cup = EXCLUDED.is_cup,
			teams = EXCLUDED.teams,
			attempts = EXCLUDED.attempts,
			recorded_at = EXCLUDED.recorded_at;
	`
	_, err := l.pool.Exec(ctx, query,
		o.RunID, o.CountryID, o.LeagueID, o.Status, o.IsCup, o.Teams, o.Attempts, o.At,
	)
	if err != nil {
		return fmt.Errorf("record league outcome: %w", err)
	}
	return nil
}

// CompleteRun marks the run finished with a status and optional error text.
func (l *Ledger) CompleteRun(
	ctx context.Context,
	runID uuid.UUID,
	finishedAt time.Time,
	status ledger.RunStatus,
	errText string,
) error {
	query := `
		UPDATE crawl_runs
		SET finished_at = $1, status = $2, error_text = NULLIF($3, '')
		WHERE id = $4;
	`
	if _, err := l.pool.Exec(ctx, query, finishedAt, status, errText, runID); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}
