// Package static implements fetcher.Fetcher with a plain HTTP GET via Colly.
package static

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/okechukwu95dev/pitchindex/internal/fetcher"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher issues single HTTP GETs through a Colly collector. It is the cheap
// first pass for discovery pages; script-rendered responses get promoted to
// the headless fetcher by the detector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = false
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, req fetcher.Request) (fetcher.Page, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	collector.SetRequestTimeout(timeout)

	var (
		page     fetcher.Page
		fetchErr error
	)
	start := time.Now()

	collector.OnResponse(func(resp *colly.Response) {
		page = fetcher.Page{
			URL:      resp.Request.URL.String(),
			Body:     append([]byte(nil), resp.Body...),
			Duration: time.Since(start),
		}
		if resp.StatusCode >= 400 {
			fetchErr = fmt.Errorf("static fetch %s: status %d", req.URL, resp.StatusCode)
		}
	})
	collector.OnError(func(resp *colly.Response, err error) {
		fetchErr = fmt.Errorf("static fetch %s: %w", req.URL, err)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(req.URL); err != nil && fetchErr == nil {
			fetchErr = fmt.Errorf("visit %s: %w", req.URL, err)
		}
		collector.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fetcher.Page{}, fmt.Errorf("static fetch canceled: %w", ctx.Err())
	}

	if fetchErr != nil {
		return fetcher.Page{}, fetchErr
	}
	if page.URL == "" {
		return fetcher.Page{}, fmt.Errorf("static fetch %s: empty response", req.URL)
	}
	return page, nil
}
