// Package ledger records run and per-league outcomes in durable storage.
//
// The ledger is auxiliary: the checkpoint remains the single source of truth
// for resumption. Ledger failures are logged, never fatal.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a crawl run.
type RunStatus string

// Run status values persisted per run.
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// LeagueOutcome is one row per processed league.
type LeagueOutcome struct {
	RunID     uuid.UUID
	CountryID string
	LeagueID  string
	Status    string
	IsCup     bool
	Teams     int
	Attempts  int
	At        time.Time
}

// Ledger persists crawl run history.
type Ledger interface {
	StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error
	RecordLeague(ctx context.Context, outcome LeagueOutcome) error
	CompleteRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, status RunStatus, errText string) error
	Close()
}

// Noop discards all writes. Used when no database is configured.
type Noop struct{}

// StartRun implements Ledger.
func (Noop) StartRun(context.Context, uuid.UUID, time.Time) error { return nil }

// RecordLeague implements Ledger.
func (Noop) RecordLeague(context.Context, LeagueOutcome) error { return nil }

// CompleteRun implements Ledger.
func (Noop) CompleteRun(context.Context, uuid.UUID, time.Time, RunStatus, string) error {
	return nil
}

// Close implements Ledger.
func (Noop) Close() {}
