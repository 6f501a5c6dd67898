package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okechukwu95dev/pitchindex/internal/checkpoint"
	"github.com/okechukwu95dev/pitchindex/internal/extract"
	"github.com/okechukwu95dev/pitchindex/internal/hierarchy"
	"github.com/okechukwu95dev/pitchindex/internal/ledger"
	"github.com/okechukwu95dev/pitchindex/internal/metrics"
	"github.com/okechukwu95dev/pitchindex/internal/ratelimit"
)

// Clock supplies timestamps for checkpoint naming and ledger rows.
type Clock interface {
	Now() time.Time
}

// Config parametrizes the traversal.
type Config struct {
	EntryURL string
}

// Result summarizes a finished run.
type Result struct {
	RunID      uuid.UUID
	Snapshot   *hierarchy.Snapshot
	FinalPath  string
	Totals     hierarchy.Totals
	Incomplete []hierarchy.IncompleteLeague
}

// Orchestrator walks countries, leagues and teams, consults the snapshot to
// skip completed subtrees, and flushes a checkpoint after every league. It is
// the single writer of the snapshot; no other goroutine mutates it.
type Orchestrator struct {
	cfg      Config
	discover *Discoverer
	teams    *TeamFetcher
	store    *checkpoint.Store
	limiter  *ratelimit.Limiter
	ledger   ledger.Ledger
	view     *ProgressView
	clock    Clock
	logger   *zap.Logger
}

// New assembles the orchestrator. ledger and view may be nil.
func New(
	cfg Config,
	discover *Discoverer,
	teams *TeamFetcher,
	store *checkpoint.Store,
	limiter *ratelimit.Limiter,
	ldg ledger.Ledger,
	view *ProgressView,
	clock Clock,
	logger *zap.Logger,
) *Orchestrator {
	if ldg == nil {
		ldg = ledger.Noop{}
	}
	if view == nil {
		view = NewProgressView()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg,
		discover: discover,
		teams:    teams,
		store:    store,
		limiter:  limiter,
		ledger:   ldg,
		view:     view,
		clock:    clock,
		logger:   logger,
	}
}

// Run executes one crawl: load or initialize the snapshot, discover the
// country list, walk every country's leagues skipping completed ones, flush
// the checkpoint after each league, and finally write the immutable output
// snapshot. It fails only on unrecoverable setup errors; every per-league
// failure degrades to a pending entry retried on the next run.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return Result{}, fmt.Errorf("generate run id: %w", err)
	}
	started := o.clock.Now()
	o.view.Start(runID.String(), started)

	checkpointPath := o.store.RunPath()
	snap, err := o.store.Load(checkpointPath)
	if err != nil {
		return Result{}, fmt.Errorf("load checkpoint: %w", err)
	}
	o.logger.Info("snapshot loaded",
		zap.String("run_id", runID.String()),
		zap.String("checkpoint", checkpointPath),
		zap.Int("countries", len(snap.Countries)),
	)

	// Country discovery is best-effort once. Losing it means losing the
	// entire crawl's scope, so there is no retry and no degradation here.
	countries, err := o.discover.Countries(ctx, o.cfg.EntryURL)
	if err != nil {
		return Result{}, fmt.Errorf("discover countries: %w", err)
	}
	if len(countries) == 0 {
		return Result{}, fmt.Errorf("discover countries: empty list from %s", o.cfg.EntryURL)
	}
	o.logger.Info("countries discovered", zap.Int("count", len(countries)))

	if err := o.ledger.StartRun(ctx, runID, started); err != nil {
		o.logger.Warn("ledger start failed", zap.Error(err))
	}

	teamsTotal := 0
	for _, rec := range countries {
		if ctx.Err() != nil {
			break
		}
		country := snap.EnsureCountry(rec.ID, rec.Name, rec.URL)

		leagues, err := o.discover.Leagues(ctx, rec.URL)
		if err != nil {
			// Non-fatal: this country's entry persists and the whole list is
			// re-attempted on the next run.
			o.logger.Warn("league discovery failed, skipping country this run",
				zap.String("country", rec.ID),
				zap.Error(err),
			)
			continue
		}

		for _, lrec := range leagues {
			if ctx.Err() != nil {
				break
			}
			n, err := o.processLeague(ctx, runID, snap, country, lrec, checkpointPath)
			if err != nil {
				return Result{}, err
			}
			teamsTotal += n
		}
	}

	if ctx.Err() != nil {
		o.completeRun(runID, ledger.RunFailed, ctx.Err().Error())
		return Result{}, fmt.Errorf("crawl interrupted: %w", ctx.Err())
	}

	finalPath := o.store.FinalPath()
	if err := o.store.Save(finalPath, snap); err != nil {
		o.completeRun(runID, ledger.RunFailed, err.Error())
		return Result{}, fmt.Errorf("write final snapshot: %w", err)
	}
	// The checkpoint file is deliberately kept for forensic comparison.

	totals := snap.Totals()
	incomplete := snap.Incomplete()
	o.view.Update("finished", snap, o.clock.Now())
	o.completeRun(runID, ledger.RunSucceeded, "")

	o.logger.Info("crawl finished",
		zap.String("run_id", runID.String()),
		zap.String("final", finalPath),
		zap.Int("countries", totals.Countries),
		zap.Int("leagues", totals.Leagues),
		zap.Int("teams", totals.Teams),
		zap.Int("teams_this_run", teamsTotal),
		zap.Int("incomplete", len(incomplete)),
	)
	for _, il := range incomplete {
		o.logger.Warn("league incomplete after run",
			zap.String("country", il.Country),
			zap.String("league", il.League),
			zap.String("url", il.URL),
		)
	}

	return Result{
		RunID:      runID,
		Snapshot:   snap,
		FinalPath:  finalPath,
		Totals:     totals,
		Incomplete: incomplete,
	}, nil
}

// processLeague handles one league: skip when already done, otherwise fetch
// teams under the retry policy, update the snapshot and flush the checkpoint.
// Returns the number of real teams now known for the league.
func (o *Orchestrator) processLeague(
	ctx context.Context,
	runID uuid.UUID,
	snap *hierarchy.Snapshot,
	country *hierarchy.Country,
	rec extract.Record,
	checkpointPath string,
) (int, error) {
	if existing := country.League(rec.ID); existing != nil && existing.Done() {
		metrics.ObserveLeague("skipped")
		return existing.TeamCount(), nil
	}

	if err := o.limiter.Wait(ctx, rec.URL); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}

	league := &hierarchy.League{ID: rec.ID, Name: rec.Name, URL: rec.URL}
	res := o.teams.FetchTeams(ctx, league)
	league.Teams = res.Teams
	league.Status = res.Status
	league.IsCup = res.IsCup
	country.PutLeague(league)

	if err := o.store.Save(checkpointPath, snap); err != nil {
		// A failed flush breaks the resumability contract; stopping here is
		// cheaper than discovering it after a crash.
		return 0, fmt.Errorf("flush checkpoint: %w", err)
	}
	metrics.ObserveCheckpointWrite()
	metrics.ObserveLeague(string(res.Status))
	metrics.AddTeams(league.TeamCount())

	if err := o.ledger.RecordLeague(ctx, ledger.LeagueOutcome{
		RunID:     runID,
		CountryID: country.ID,
		LeagueID:  league.ID,
		Status:    string(res.Status),
		IsCup:     league.IsCup,
		Teams:     league.TeamCount(),
		Attempts:  res.Attempts,
		At:        o.clock.Now(),
	}); err != nil {
		o.logger.Warn("ledger record failed",
			zap.String("league", league.ID),
			zap.Error(err),
		)
	}

	o.view.Update("crawling", snap, o.clock.Now())
	o.logger.Info("league processed",
		zap.String("country", country.ID),
		zap.String("league", league.ID),
		zap.String("status", string(res.Status)),
		zap.Bool("is_cup", league.IsCup),
		zap.Int("teams", league.TeamCount()),
		zap.Int("attempts", res.Attempts),
	)
	return league.TeamCount(), nil
}

func (o *Orchestrator) completeRun(runID uuid.UUID, status ledger.RunStatus, errText string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.ledger.CompleteRun(ctx, runID, o.clock.Now(), status, errText); err != nil {
		o.logger.Warn("ledger complete failed", zap.Error(err))
	}
}
