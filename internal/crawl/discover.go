package crawl

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/okechukwu95dev/pitchindex/internal/extract"
	"github.com/okechukwu95dev/pitchindex/internal/fetcher"
	"github.com/okechukwu95dev/pitchindex/internal/metrics"
)

// Promoter decides whether a statically fetched page must be re-rendered.
type Promoter interface {
	ShouldPromote(page fetcher.Page) bool
}

// Discoverer fetches and extracts the country and league lists. It probes
// with the cheap static fetcher first and promotes to the headless browser
// when the response looks script-rendered.
type Discoverer struct {
	static   fetcher.Fetcher
	headless fetcher.Fetcher
	promoter Promoter
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDiscoverer wires the discovery path. static and promoter may be nil, in
// which case every discovery fetch goes straight to the headless browser.
func NewDiscoverer(static, headless fetcher.Fetcher, promoter Promoter, timeout time.Duration, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		static:   static,
		headless: headless,
		promoter: promoter,
		timeout:  timeout,
		logger:   logger,
	}
}

// Countries renders the entry page and extracts the ordered country list.
func (d *Discoverer) Countries(ctx context.Context, entryURL string) ([]extract.Record, error) {
	base, err := url.Parse(entryURL)
	if err != nil {
		return nil, fmt.Errorf("parse entry url: %w", err)
	}
	page, err := d.fetch(ctx, entryURL, "countries")
	if err != nil {
		return nil, fmt.Errorf("fetch countries: %w", err)
	}
	records, err := extract.Countries(page.Body, base)
	if err != nil {
		return nil, fmt.Errorf("extract countries: %w", err)
	}
	return records, nil
}

// Leagues renders a country page and extracts its league list.
func (d *Discoverer) Leagues(ctx context.Context, countryURL string) ([]extract.Record, error) {
	base, err := url.Parse(countryURL)
	if err != nil {
		return nil, fmt.Errorf("parse country url: %w", err)
	}
	page, err := d.fetch(ctx, countryURL, "leagues")
	if err != nil {
		return nil, fmt.Errorf("fetch leagues: %w", err)
	}
	records, err := extract.Leagues(page.Body, base)
	if err != nil {
		return nil, fmt.Errorf("extract leagues: %w", err)
	}
	return records, nil
}

func (d *Discoverer) fetch(ctx context.Context, rawURL, level string) (fetcher.Page, error) {
	if d.static != nil {
		start := time.Now()
		page, err := d.static.Fetch(ctx, fetcher.Request{URL: rawURL, Timeout: d.timeout})
		if err == nil {
			metrics.ObserveFetchAttempt(level, "ok", page.Duration)
			if d.promoter == nil || !d.promoter.ShouldPromote(page) {
				return page, nil
			}
			d.logger.Debug("promoting discovery fetch to headless", zap.String("url", rawURL))
		} else {
			metrics.ObserveFetchAttempt(level, "error", time.Since(start))
			d.logger.Debug("static discovery fetch failed, falling back to headless",
				zap.String("url", rawURL),
				zap.Error(err),
			)
		}
	}

	page, err := d.headless.Fetch(ctx, fetcher.Request{URL: rawURL, Timeout: d.timeout})
	if err != nil {
		metrics.ObserveFetchAttempt(level, "error", 0)
		return fetcher.Page{}, err
	}
	metrics.ObserveFetchAttempt(level, "ok", page.Duration)
	return page, nil
}
