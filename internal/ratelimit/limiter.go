// Package ratelimit enforces a minimum delay between fetches to a host.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okechukwu95dev/pitchindex/internal/metrics"
)

// Config holds rate limiter configuration.
type Config struct {
	// Delay is the minimum time between two fetches to the same host.
	// Zero disables limiting.
	Delay time.Duration
}

// Limiter manages per-host token buckets. The crawl targets one site, but
// keying by host keeps discovery redirects from eating the main budget.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
}

// New creates a Limiter from the configured delay.
func New(cfg Config) *Limiter {
	r := rate.Inf
	if cfg.Delay > 0 {
		r = rate.Every(cfg.Delay)
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
	}
}

// Wait blocks until a token is available for the URL's host, respecting the
// context. Induced delays beyond a millisecond are recorded as metrics.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	l.mu.Lock()
	limiter, exists := l.limiters[host]
	if !exists {
		limiter = rate.NewLimiter(l.rate, 1)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}
