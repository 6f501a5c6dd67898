package crawl

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/okechukwu95dev/pitchindex/internal/checkpoint"
	"github.com/okechukwu95dev/pitchindex/internal/hierarchy"
	"github.com/okechukwu95dev/pitchindex/internal/ledger"
	"github.com/okechukwu95dev/pitchindex/internal/ratelimit"
)

type testClock struct {
	now time.Time
}

func (c testClock) Now() time.Time { return c.now }

type recordingLedger struct {
	mu       sync.Mutex
	started  []uuid.UUID
	outcomes []ledger.LeagueOutcome
	finished []ledger.RunStatus
}

func (r *recordingLedger) StartRun(_ context.Context, runID uuid.UUID, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, runID)
	return nil
}

func (r *recordingLedger) RecordLeague(_ context.Context, o ledger.LeagueOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *recordingLedger) CompleteRun(_ context.Context, _ uuid.UUID, _ time.Time, status ledger.RunStatus, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, status)
	return nil
}

func (r *recordingLedger) Close() {}

const (
	entryURL   = "http://example.com/paises"
	englandURL = "http://example.com/england"
	spainURL   = "http://example.com/spain"
	premierURL = "http://example.com/premier-league"
	faCupURL   = "http://example.com/fa-cup"
	laligaURL  = "http://example.com/laliga"
)

// seedSite loads the two-country fixture: England has a league and a cup,
// Spain has one league.
func seedSite(f *fakeFetcher) {
	f.pages[entryURL] = []byte(`<ul class="paises">
		<li><a href="/england">England</a></li>
		<li><a href="/spain">Spain</a></li>
	</ul>`)
	f.pages[englandURL] = []byte(`<div class="competiciones">
		<a href="/premier-league">Premier League</a>
		<a href="/fa-cup">FA Cup</a>
	</div>`)
	f.pages[spainURL] = []byte(`<div class="competiciones">
		<a href="/laliga">LaLiga</a>
	</div>`)
	f.pages[premierURL] = []byte(standingsPage)
	f.pages[laligaURL] = []byte(`<table class="standings">
		<tr><td><a href="/betis">Betis</a></td></tr>
		<tr><td><a href="/sevilla">Sevilla</a></td></tr>
	</table>`)
	f.errs[faCupURL] = errors.New("wait selector never visible")
}

func newTestOrchestrator(t *testing.T, dir string, f *fakeFetcher, ldg ledger.Ledger) *Orchestrator {
	t.Helper()
	clock := testClock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
	store, err := checkpoint.New(checkpoint.Config{Dir: dir}, clock, nil)
	require.NoError(t, err)

	discoverer := NewDiscoverer(nil, f, nil, time.Second, nil)
	teams := NewTeamFetcher(f, RetryConfig{
		Attempts:      2,
		LeagueTimeout: time.Second,
		CupTimeout:    time.Second,
		TeamsSelector: "table.standings",
	}, nil)

	return New(
		Config{EntryURL: entryURL},
		discoverer,
		teams,
		store,
		ratelimit.New(ratelimit.Config{}),
		ldg,
		NewProgressView(),
		clock,
		nil,
	)
}

func TestOrchestrator_Run(t *testing.T) {
	t.Parallel()

	t.Run("full traversal", func(t *testing.T) {
		f := newFakeFetcher()
		seedSite(f)
		ldg := &recordingLedger{}
		orch := newTestOrchestrator(t, t.TempDir(), f, ldg)

		result, err := orch.Run(context.Background())
		require.NoError(t, err)

		require.Equal(t, 2, result.Totals.Countries)
		require.Equal(t, 3, result.Totals.Leagues)
		require.Equal(t, 2, result.Totals.CompleteLeagues)
		require.Equal(t, 1, result.Totals.ConfirmedEmpty)
		require.Equal(t, 0, result.Totals.PendingLeagues)
		require.Equal(t, 4, result.Totals.Teams)
		require.Empty(t, result.Incomplete)

		// Final snapshot written, checkpoint preserved alongside it.
		require.FileExists(t, result.FinalPath)
		require.FileExists(t, orch.store.RunPath())

		require.Len(t, ldg.started, 1)
		require.Len(t, ldg.outcomes, 3)
		require.Equal(t, []ledger.RunStatus{ledger.RunSucceeded}, ldg.finished)

		faCup := result.Snapshot.Countries["england"].League("fa-cup")
		require.Equal(t, hierarchy.StatusConfirmedEmpty, faCup.Status)
		require.True(t, faCup.IsCup)
		require.Contains(t, faCup.Teams, hierarchy.SentinelTeamID)
	})

	t.Run("second run skips completed leagues", func(t *testing.T) {
		f := newFakeFetcher()
		seedSite(f)
		dir := t.TempDir()

		first := newTestOrchestrator(t, dir, f, nil)
		_, err := first.Run(context.Background())
		require.NoError(t, err)

		checkpointBefore, err := os.ReadFile(first.store.RunPath())
		require.NoError(t, err)
		premierFetches := f.callCount(premierURL)
		faCupFetches := f.callCount(faCupURL)

		second := newTestOrchestrator(t, dir, f, nil)
		result, err := second.Run(context.Background())
		require.NoError(t, err)

		// Discovery re-runs, league pages do not. The confirmed-empty cup is
		// skipped too, not retried.
		require.Equal(t, premierFetches, f.callCount(premierURL))
		require.Equal(t, faCupFetches, f.callCount(faCupURL))
		require.Equal(t, 2, f.callCount(entryURL))

		checkpointAfter, err := os.ReadFile(second.store.RunPath())
		require.NoError(t, err)
		require.Equal(t, checkpointBefore, checkpointAfter)
		require.Equal(t, 4, result.Totals.Teams)
	})

	t.Run("failed league resumes on the next run", func(t *testing.T) {
		f := newFakeFetcher()
		seedSite(f)
		f.errs[laligaURL] = errors.New("browser crashed")
		dir := t.TempDir()

		first := newTestOrchestrator(t, dir, f, nil)
		res1, err := first.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, res1.Totals.PendingLeagues)
		require.Equal(t, []hierarchy.IncompleteLeague{
			{Country: "Spain", League: "LaLiga", URL: laligaURL},
		}, res1.Incomplete)

		f.mu.Lock()
		delete(f.errs, laligaURL)
		f.mu.Unlock()
		premierFetches := f.callCount(premierURL)

		second := newTestOrchestrator(t, dir, f, nil)
		res2, err := second.Run(context.Background())
		require.NoError(t, err)

		require.Equal(t, 0, res2.Totals.PendingLeagues)
		require.Equal(t, 4, res2.Totals.Teams)
		require.Equal(t, premierFetches, f.callCount(premierURL))
		laliga := res2.Snapshot.Countries["spain"].League("laliga")
		require.Equal(t, hierarchy.StatusComplete, laliga.Status)
	})

	t.Run("country discovery failure is fatal", func(t *testing.T) {
		f := newFakeFetcher()
		f.errs[entryURL] = errors.New("site down")
		orch := newTestOrchestrator(t, t.TempDir(), f, nil)

		_, err := orch.Run(context.Background())
		require.Error(t, err)
	})

	t.Run("empty country list is fatal", func(t *testing.T) {
		f := newFakeFetcher()
		f.pages[entryURL] = []byte(`<html><body>maintenance</body></html>`)
		orch := newTestOrchestrator(t, t.TempDir(), f, nil)

		_, err := orch.Run(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "empty list")
	})

	t.Run("league discovery failure skips the country", func(t *testing.T) {
		f := newFakeFetcher()
		seedSite(f)
		f.errs[spainURL] = errors.New("country page broken")
		ldg := &recordingLedger{}
		orch := newTestOrchestrator(t, t.TempDir(), f, ldg)

		result, err := orch.Run(context.Background())
		require.NoError(t, err)

		// England processed fully, Spain kept as a leagueless entry for the
		// next run.
		require.Equal(t, 2, result.Totals.Countries)
		require.Equal(t, 2, result.Totals.Leagues)
		require.Len(t, ldg.outcomes, 2)
		require.Empty(t, result.Snapshot.Countries["spain"].Leagues)
	})

	t.Run("canceled context marks the run failed", func(t *testing.T) {
		f := newFakeFetcher()
		seedSite(f)
		ldg := &recordingLedger{}
		orch := newTestOrchestrator(t, t.TempDir(), f, ldg)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := orch.Run(ctx)

		require.Error(t, err)
		require.Equal(t, []ledger.RunStatus{ledger.RunFailed}, ldg.finished)
	})
}
