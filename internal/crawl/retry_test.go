package crawl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okechukwu95dev/pitchindex/internal/fetcher"
	"github.com/okechukwu95dev/pitchindex/internal/hierarchy"
)

// fakeFetcher serves canned pages by URL and counts calls. Shared by the
// retry, discovery and orchestrator tests.
type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string][]byte
	errs      map[string]error
	failFirst map[string]int
	calls     map[string]int
	lastReq   fetcher.Request
	headless  bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:     map[string][]byte{},
		errs:      map[string]error{},
		failFirst: map[string]int{},
		calls:     map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetcher.Request) (fetcher.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.URL]++
	f.lastReq = req
	if n := f.failFirst[req.URL]; n > 0 && f.calls[req.URL] <= n {
		return fetcher.Page{}, errors.New("transient failure")
	}
	if err, ok := f.errs[req.URL]; ok {
		return fetcher.Page{}, err
	}
	body, ok := f.pages[req.URL]
	if !ok {
		return fetcher.Page{}, errors.New("no page configured for " + req.URL)
	}
	return fetcher.Page{URL: req.URL, Body: body, Duration: time.Millisecond, UsedHeadless: f.headless}, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) lastRequest() fetcher.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

const standingsPage = `<html><body><table class="standings">
	<tr><td><a href="/arsenal">Arsenal</a></td></tr>
	<tr><td><a href="/chelsea">Chelsea</a></td></tr>
</table></body></html>`

const bracketPage = `<html><body><div class="bracket">semifinals</div></body></html>`

func TestTeamFetcher_FetchTeams(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		Attempts:      2,
		LeagueTimeout: 30 * time.Second,
		CupTimeout:    10 * time.Second,
		TeamsSelector: "table.standings",
	}

	t.Run("success on first attempt", func(t *testing.T) {
		f := newFakeFetcher()
		f.pages["http://example.com/premier-league"] = []byte(standingsPage)
		tf := NewTeamFetcher(f, cfg, nil)

		res := tf.FetchTeams(context.Background(), &hierarchy.League{
			ID: "premier-league", Name: "Premier League", URL: "http://example.com/premier-league",
		})

		require.Equal(t, hierarchy.StatusComplete, res.Status)
		require.Equal(t, 1, res.Attempts)
		require.False(t, res.IsCup)
		require.Len(t, res.Teams, 2)
		require.Equal(t, "Arsenal", res.Teams["arsenal"].Name)
		require.Equal(t, cfg.LeagueTimeout, f.lastRequest().Timeout)
		require.Equal(t, cfg.TeamsSelector, f.lastRequest().WaitSelector)
	})

	t.Run("failure then success", func(t *testing.T) {
		f := newFakeFetcher()
		f.failFirst["http://example.com/laliga"] = 1
		f.pages["http://example.com/laliga"] = []byte(standingsPage)
		tf := NewTeamFetcher(f, cfg, nil)

		res := tf.FetchTeams(context.Background(), &hierarchy.League{
			ID: "laliga", URL: "http://example.com/laliga",
		})

		require.Equal(t, hierarchy.StatusComplete, res.Status)
		require.Equal(t, 2, res.Attempts)
		require.Len(t, res.Teams, 2)
	})

	t.Run("exhausted retries leave league pending", func(t *testing.T) {
		f := newFakeFetcher()
		f.errs["http://example.com/bundesliga"] = errors.New("browser crashed")
		tf := NewTeamFetcher(f, cfg, nil)

		res := tf.FetchTeams(context.Background(), &hierarchy.League{
			ID: "bundesliga", URL: "http://example.com/bundesliga",
		})

		require.Equal(t, 2, f.callCount("http://example.com/bundesliga"))
		require.Equal(t, hierarchy.StatusPending, res.Status)
		require.Empty(t, res.Teams)
		require.False(t, res.IsCup)
	})

	t.Run("cup url gets sentinel on exhaustion", func(t *testing.T) {
		f := newFakeFetcher()
		f.errs["http://example.com/fa-cup"] = errors.New("wait selector never visible")
		tf := NewTeamFetcher(f, cfg, nil)

		res := tf.FetchTeams(context.Background(), &hierarchy.League{
			ID: "fa-cup", Name: "FA Cup", URL: "http://example.com/fa-cup",
		})

		require.Equal(t, hierarchy.StatusConfirmedEmpty, res.Status)
		require.True(t, res.IsCup)
		require.Len(t, res.Teams, 1)
		sentinel := res.Teams[hierarchy.SentinelTeamID]
		require.Equal(t, "FA Cup", sentinel.Name)
		require.Equal(t, "http://example.com/fa-cup", sentinel.URL)
		require.Equal(t, cfg.CupTimeout, f.lastRequest().Timeout)
	})

	t.Run("rendered page without teams confirms empty", func(t *testing.T) {
		f := newFakeFetcher()
		f.pages["http://example.com/supercopa"] = []byte(bracketPage)
		tf := NewTeamFetcher(f, cfg, nil)

		res := tf.FetchTeams(context.Background(), &hierarchy.League{
			ID: "supercopa", Name: "Supercopa", URL: "http://example.com/supercopa",
		})

		require.Equal(t, hierarchy.StatusConfirmedEmpty, res.Status)
		require.True(t, res.IsCup)
		require.Contains(t, res.Teams, hierarchy.SentinelTeamID)
	})

	t.Run("each attempt starts from a fresh mapping", func(t *testing.T) {
		f := newFakeFetcher()
		f.pages["http://example.com/serie-a"] = []byte(bracketPage)
		tf := NewTeamFetcher(f, cfg, nil)

		res := tf.FetchTeams(context.Background(), &hierarchy.League{
			ID: "serie-a", URL: "http://example.com/serie-a",
		})

		// Two empty renders must not accumulate anything beyond the sentinel.
		require.Equal(t, 2, res.Attempts)
		require.Len(t, res.Teams, 1)
	})

	t.Run("canceled context stops before the first attempt", func(t *testing.T) {
		f := newFakeFetcher()
		tf := NewTeamFetcher(f, cfg, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := tf.FetchTeams(ctx, &hierarchy.League{ID: "ligue-1", URL: "http://example.com/ligue-1"})

		require.Equal(t, 0, res.Attempts)
		require.Equal(t, hierarchy.StatusPending, res.Status)
		require.Equal(t, 0, f.callCount("http://example.com/ligue-1"))
	})

	t.Run("pre-marked cup skips keyword classification", func(t *testing.T) {
		f := newFakeFetcher()
		f.errs["http://example.com/eliminatoria"] = errors.New("timeout")
		tf := NewTeamFetcher(f, cfg, nil)

		res := tf.FetchTeams(context.Background(), &hierarchy.League{
			ID: "eliminatoria", URL: "http://example.com/eliminatoria", IsCup: true,
		})

		require.True(t, res.IsCup)
		require.Equal(t, hierarchy.StatusConfirmedEmpty, res.Status)
		require.Equal(t, cfg.CupTimeout, f.lastRequest().Timeout)
	})
}
