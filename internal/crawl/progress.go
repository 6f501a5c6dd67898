package crawl

import (
	"sync"
	"time"

	"github.com/okechukwu95dev/pitchindex/internal/hierarchy"
)

// StatusReport is the JSON document served by the status endpoint.
type StatusReport struct {
	RunID      string                       `json:"run_id"`
	Stage      string                       `json:"stage"`
	StartedAt  time.Time                    `json:"started_at"`
	UpdatedAt  time.Time                    `json:"updated_at"`
	Totals     hierarchy.Totals             `json:"totals"`
	Incomplete []hierarchy.IncompleteLeague `json:"incomplete,omitempty"`
}

// ProgressView is the orchestrator's concurrency-safe window for the status
// server. The orchestrator is the only writer.
type ProgressView struct {
	mu     sync.RWMutex
	report StatusReport
}

// NewProgressView creates an empty view.
func NewProgressView() *ProgressView {
	return &ProgressView{}
}

// Start records the run identity.
func (v *ProgressView) Start(runID string, at time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.report.RunID = runID
	v.report.Stage = "starting"
	v.report.StartedAt = at
	v.report.UpdatedAt = at
}

// Update publishes the latest traversal state.
func (v *ProgressView) Update(stage string, snap *hierarchy.Snapshot, at time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.report.Stage = stage
	v.report.Totals = snap.Totals()
	v.report.Incomplete = snap.Incomplete()
	v.report.UpdatedAt = at
}

// Report returns a copy of the current state.
func (v *ProgressView) Report() StatusReport {
	v.mu.RLock()
	defer v.mu.RUnlock()
	r := v.report
	r.Incomplete = append([]hierarchy.IncompleteLeague(nil), v.report.Incomplete...)
	return r
}
