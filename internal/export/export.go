// Package export publishes finished snapshots outside the local filesystem.
package export

import (
	"context"
	"time"

	"github.com/okechukwu95dev/pitchindex/internal/hierarchy"
)

// RunComplete is the notification payload emitted after a successful run.
type RunComplete struct {
	RunID       string           `json:"run_id"`
	SnapshotURI string           `json:"snapshot_uri"`
	SHA256      string           `json:"sha256"`
	Totals      hierarchy.Totals `json:"totals"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// Uploader copies the final snapshot to remote storage and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Notifier announces run completion to downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, msg RunComplete) error
	Close() error
}

// NoopUploader skips the upload and reports the local name unchanged.
type NoopUploader struct{}

// Upload implements Uploader.
func (NoopUploader) Upload(_ context.Context, name string, _ []byte) (string, error) {
	return name, nil
}

// NoopNotifier discards notifications.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(context.Context, RunComplete) error { return nil }

// Close implements Notifier.
func (NoopNotifier) Close() error { return nil }
