// Package filestore persists snapshots as one JSON file per capture, named
// after the capture timestamp.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
)

// Store reads and writes snapshot files in a single directory.
type Store struct {
	dir     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Store rooted at dir. The directory is created on first save.
func New(dir string, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{dir: dir, logger: logger, metrics: metrics}
}

// Save writes snap to <dir>/<timestamp>. An existing file for the same
// timestamp is never overwritten.
func (s *Store) Save(_ context.Context, snap domain.Snapshot) error {
	data, err := domain.EncodeMentions(snap.Mentions)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageFault, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create snapshot dir: %w", domain.ErrStorageFault, err)
	}

	path := filepath.Join(s.dir, snap.Key())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrStorageFault, path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: write %s: %w", domain.ErrStorageFault, path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: close %s: %w", domain.ErrStorageFault, path, err)
	}

	s.metrics.SnapshotsSaved.Inc()
	s.logger.Info("snapshot saved", "path", path, "places", len(snap.Mentions))
	return nil
}

// LoadAll reads every snapshot file in the directory. Entries that fail to
// parse are logged and skipped. A missing directory is an empty corpus.
func (s *Store) LoadAll(_ context.Context) (domain.History, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.History{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot dir: %w", domain.ErrStorageFault, err)
	}

	history := make(domain.History, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		snap, err := s.load(e.Name())
		if err != nil {
			s.metrics.SnapshotLoadFaults.Inc()
			s.logger.Warn("skipping unreadable snapshot", "file", e.Name(), "error", err)
			continue
		}
		history = append(history, snap)
	}

	s.metrics.SnapshotsLoaded.Add(float64(len(history)))
	return history, nil
}

func (s *Store) load(name string) (domain.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %w", domain.ErrDataFault, err)
	}
	return domain.ParseSnapshot(name, data)
}
