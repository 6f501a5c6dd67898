// Package crawl implements the checkpointed hierarchical crawl pipeline.
package crawl

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/okechukwu95dev/pitchindex/internal/extract"
	"github.com/okechukwu95dev/pitchindex/internal/fetcher"
	"github.com/okechukwu95dev/pitchindex/internal/hierarchy"
	"github.com/okechukwu95dev/pitchindex/internal/metrics"
)

// RetryConfig parametrizes the team fetch policy.
type RetryConfig struct {
	// Attempts bounds fetch+extract tries per league.
	Attempts int
	// LeagueTimeout is the navigation budget for regular standings pages.
	LeagueTimeout time.Duration
	// CupTimeout is the shorter budget for cup/knockout URLs, which render
	// brackets instead of standings and never satisfy the wait selector.
	CupTimeout time.Duration
	// TeamsSelector must be visible before extraction runs.
	TeamsSelector string
}

// TeamResult is the outcome of a league's team fetch. It is always usable:
// the policy converts every failure into an empty or sentinel result.
type TeamResult struct {
	Teams    map[string]hierarchy.Team
	Status   hierarchy.LeagueStatus
	IsCup    bool
	Attempts int
}

// TeamFetcher wraps fetch+extract attempts with bounded retry and
// per-URL-class timeout selection.
type TeamFetcher struct {
	fetcher fetcher.Fetcher
	cfg     RetryConfig
	logger  *zap.Logger
}

// NewTeamFetcher builds the retry policy around a page fetcher.
func NewTeamFetcher(f fetcher.Fetcher, cfg RetryConfig, logger *zap.Logger) *TeamFetcher {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	if cfg.LeagueTimeout <= 0 {
		cfg.LeagueTimeout = 30 * time.Second
	}
	if cfg.CupTimeout <= 0 {
		cfg.CupTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamFetcher{fetcher: f, cfg: cfg, logger: logger}
}

// FetchTeams runs up to cfg.Attempts full fetch+extract rounds for a league.
// Each attempt starts from a fresh team mapping; there is no partial-result
// carryover. The first attempt yielding at least one team wins.
func (t *TeamFetcher) FetchTeams(ctx context.Context, league *hierarchy.League) TeamResult {
	isCup := league.IsCup || extract.ClassifyCup(league.URL)
	timeout := t.cfg.LeagueTimeout
	if isCup {
		timeout = t.cfg.CupTimeout
	}
	base, _ := url.Parse(league.URL)

	renderedEmpty := false
	attempts := 0
	for attempts < t.cfg.Attempts {
		if ctx.Err() != nil {
			break
		}
		attempts++

		start := time.Now()
		page, err := t.fetcher.Fetch(ctx, fetcher.Request{
			URL:          league.URL,
			WaitSelector: t.cfg.TeamsSelector,
			Timeout:      timeout,
		})
		if err != nil {
			metrics.ObserveFetchAttempt("teams", "error", time.Since(start))
			t.logger.Debug("team fetch attempt failed",
				zap.String("league", league.ID),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
			continue
		}
		metrics.ObserveFetchAttempt("teams", "ok", page.Duration)

		records, err := extract.Teams(page.Body, base)
		if err != nil {
			t.logger.Warn("team extraction failed",
				zap.String("league", league.ID),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
			continue
		}
		if len(records) > 0 {
			teams := make(map[string]hierarchy.Team, len(records))
			for _, rec := range records {
				if _, dup := teams[rec.ID]; dup {
					continue
				}
				teams[rec.ID] = hierarchy.Team{ID: rec.ID, Name: rec.Name, URL: rec.URL}
			}
			return TeamResult{
				Teams:    teams,
				Status:   hierarchy.StatusComplete,
				IsCup:    isCup,
				Attempts: attempts,
			}
		}
		// The page rendered with the standings container present but no team
		// links inside it: a tournament-format page, not a fetch failure.
		renderedEmpty = true
	}

	if isCup || renderedEmpty {
		return TeamResult{
			Teams: map[string]hierarchy.Team{
				hierarchy.SentinelTeamID: hierarchy.SentinelTeam(league.Name, league.URL),
			},
			Status:   hierarchy.StatusConfirmedEmpty,
			IsCup:    true,
			Attempts: attempts,
		}
	}
	return TeamResult{
		Teams:    map[string]hierarchy.Team{},
		Status:   hierarchy.StatusPending,
		Attempts: attempts,
	}
}
