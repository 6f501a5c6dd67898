// Package detector decides when a statically fetched page needs re-rendering.
package detector

import (
	"bytes"

	"github.com/okechukwu95dev/pitchindex/internal/fetcher"
)

// Heuristic flags pages whose static HTML is too thin or carries SPA markers,
// meaning the hierarchy lists only exist after JavaScript runs.
type Heuristic struct {
	MinHTMLBytes int
}

// NewHeuristic creates a new detector.
func NewHeuristic(minBytes int) *Heuristic {
	if minBytes == 0 {
		minBytes = 2048
	}
	return &Heuristic{MinHTMLBytes: minBytes}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
}

// ShouldPromote decides whether the page must be re-fetched headlessly.
func (h *Heuristic) ShouldPromote(page fetcher.Page) bool {
	if page.UsedHeadless {
		return false
	}
	if len(page.Body) < h.MinHTMLBytes {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(page.Body, marker) {
			return true
		}
	}
	return false
}
