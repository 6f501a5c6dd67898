// Package headless renders pages with headless Chrome via chromedp.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/okechukwu95dev/pitchindex/internal/fetcher"
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel    int
	UserAgent      string
	DefaultTimeout time.Duration
	// CookieSelector names a consent button clicked once per page when it
	// exists. Its absence is expected and not reported.
	CookieSelector string
}

// Fetcher implements fetcher.Fetcher using chromedp and headless Chrome.
type Fetcher struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates a headless fetcher backed by chromedp. The browser process is
// launched lazily on the first fetch; an unusable Chrome install therefore
// surfaces as a fetch error, which the orchestrator treats as fatal during
// country discovery.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context, shutting down the browser.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch navigates with a headless browser and returns the fully rendered DOM.
func (f *Fetcher) Fetch(ctx context.Context, req fetcher.Request) (fetcher.Page, error) {
	if err := f.acquire(ctx); err != nil {
		return fetcher.Page{}, err
	}
	defer f.release()

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.cfg.DefaultTimeout
	}
	taskCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	start := time.Now()
	html, finalURL, err := f.runHeadless(taskCtx, req)
	if err != nil {
		return fetcher.Page{}, err
	}
	if finalURL == "" {
		finalURL = req.URL
	}

	return fetcher.Page{
		URL:          finalURL,
		Body:         []byte(html),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

func (f *Fetcher) runHeadless(ctx context.Context, req fetcher.Request) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		f.networkSetupAction(),
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		f.dismissCookieBanner(),
	}
	if req.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(req.WaitSelector, chromedp.ByQuery))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (f *Fetcher) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// dismissCookieBanner clicks the consent button when present. Most pages in a
// session never show it, so the short wait failing is the normal path.
func (f *Fetcher) dismissCookieBanner() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if f.cfg.CookieSelector == "" {
			return nil
		}
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := chromedp.Run(clickCtx,
			chromedp.WaitVisible(f.cfg.CookieSelector, chromedp.ByQuery),
			chromedp.Click(f.cfg.CookieSelector, chromedp.ByQuery),
		)
		if err != nil {
			f.logger.Debug("no cookie banner", zap.String("selector", f.cfg.CookieSelector))
		}
		return nil
	})
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
