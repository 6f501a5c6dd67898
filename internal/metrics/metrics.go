// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	leaguesTotal         *prometheus.CounterVec
	fetchAttemptsTotal   *prometheus.CounterVec
	teamsExtractedTotal  prometheus.Counter
	checkpointWrites     prometheus.Counter
	fetchDurationSeconds *prometheus.HistogramVec
	rateLimitDelays      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		leaguesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchindex_leagues_total",
				Help: "Leagues processed this run, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchindex_fetch_attempts_total",
				Help: "Page fetch attempts, labeled by level and result.",
			},
			[]string{"level", "result"},
		)

		teamsExtractedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchindex_teams_extracted_total",
				Help: "Teams extracted across all leagues this run.",
			},
		)

		checkpointWrites = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchindex_checkpoint_writes_total",
				Help: "Checkpoint flushes completed.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitchindex_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by level.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"level"},
		)

		rateLimitDelays = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitchindex_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLeague increments the league outcome counter
// (skipped, complete, confirmed_empty, pending).
func ObserveLeague(outcome string) {
	if leaguesTotal != nil {
		leaguesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveFetchAttempt records one fetch attempt for a hierarchy level.
func ObserveFetchAttempt(level, result string, duration time.Duration) {
	if fetchAttemptsTotal != nil {
		fetchAttemptsTotal.WithLabelValues(level, result).Inc()
	}
	if fetchDurationSeconds != nil {
		fetchDurationSeconds.WithLabelValues(level).Observe(duration.Seconds())
	}
}

// AddTeams bumps the extracted team counter.
func AddTeams(n int) {
	if teamsExtractedTotal != nil && n > 0 {
		teamsExtractedTotal.Add(float64(n))
	}
}

// ObserveCheckpointWrite counts one completed checkpoint flush.
func ObserveCheckpointWrite() {
	if checkpointWrites != nil {
		checkpointWrites.Inc()
	}
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	if rateLimitDelays != nil {
		rateLimitDelays.WithLabelValues(host).Observe(duration.Seconds())
	}
}
