// Package checkpoint persists crawl snapshots to durable JSON files.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/okechukwu95dev/pitchindex/internal/hierarchy"
)

// Clock supplies the calendar date used in checkpoint file names.
type Clock interface {
	Now() time.Time
}

// Config captures the parameters for the checkpoint store.
type Config struct {
	// Dir is the directory where checkpoint and final snapshot files live.
	Dir string `mapstructure:"dir"`
}

// Store reads and writes snapshot files. Paths are suffixed with the run's
// calendar date so runs on different days never collide and earlier
// checkpoints remain discoverable by name.
type Store struct {
	dir    string
	clock  Clock
	logger *zap.Logger
}

// New creates a store rooted at cfg.Dir, creating the directory if needed.
func New(cfg Config, clock Clock, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	info, err := os.Stat(cfg.Dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("checkpoint path is not a directory")
		}
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.Dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create checkpoint directory: %w", mkErr)
		}
	default:
		return nil, fmt.Errorf("stat checkpoint directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: cfg.Dir, clock: clock, logger: logger}, nil
}

// RunPath is the working checkpoint file for today's run.
func (s *Store) RunPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("teams-checkpoint-%s.json", s.date()))
}

// FinalPath is the immutable output file written once the traversal finishes.
func (s *Store) FinalPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("teams-%s.json", s.date()))
}

func (s *Store) date() string {
	return s.clock.Now().Format("2006-01-02")
}

// Load reads a snapshot from path. A missing file yields an empty snapshot.
// A file that exists but does not parse also yields an empty snapshot: a
// damaged checkpoint costs a re-crawl, never the run itself.
func (s *Store) Load(path string) (*hierarchy.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return hierarchy.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	snap := hierarchy.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		s.logger.Warn("checkpoint file is corrupt, starting empty",
			zap.String("path", path),
			zap.Error(err),
		)
		return hierarchy.NewSnapshot(), nil
	}
	return snap, nil
}

// Save writes a complete serialization of the snapshot to path. The write
// goes through a temp file in the same directory followed by a rename, so a
// crash mid-write never leaves a truncated checkpoint behind.
func (s *Store) Save(path string, snap *hierarchy.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
