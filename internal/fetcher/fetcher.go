// Package fetcher defines the page rendering contract consumed by the crawl.
package fetcher

import (
	"context"
	"time"
)

// Request captures everything needed to render one page.
type Request struct {
	URL string
	// WaitSelector is an optional CSS selector the page must render before
	// the fetch is considered ready. Empty means body-ready is enough.
	WaitSelector string
	// Timeout bounds the whole navigation. Zero falls back to the fetcher's
	// configured default.
	Timeout time.Duration
}

// Page is a rendered document.
type Page struct {
	URL          string
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher renders a URL and returns the resulting document.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Page, error)
}

// Closer is implemented by fetchers holding browser or transport resources.
type Closer interface {
	Close()
}
