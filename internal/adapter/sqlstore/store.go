// Package sqlstore persists snapshots in a SQL table keyed by capture
// timestamp. It supports SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	taken_at TEXT PRIMARY KEY,
	mentions TEXT NOT NULL
)`

// Store reads and writes snapshots through database/sql.
type Store struct {
	db      *sql.DB
	driver  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Open connects to the database and ensures the schema exists.
// backend is "sqlite" or "postgres".
func Open(ctx context.Context, backend, dsn string, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	var driver string
	switch backend {
	case "sqlite":
		driver = "sqlite"
	case "postgres":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported snapshot backend %q", backend)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStorageFault, backend, err)
	}
	if driver == "sqlite" {
		// One connection keeps ":memory:" databases alive and serializes writers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", domain.ErrStorageFault, backend, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %w", domain.ErrStorageFault, err)
	}

	return &Store{db: db, driver: driver, logger: logger, metrics: metrics}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts snap. A row for the same timestamp already present is a
// StorageFault; rows are never updated.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := domain.EncodeMentions(snap.Mentions)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageFault, err)
	}

	q := fmt.Sprintf("INSERT INTO snapshots (taken_at, mentions) VALUES (%s, %s)", s.arg(1), s.arg(2))
	if _, err := s.db.ExecContext(ctx, q, snap.Key(), string(data)); err != nil {
		return fmt.Errorf("%w: insert snapshot %s: %w", domain.ErrStorageFault, snap.Key(), err)
	}

	s.metrics.SnapshotsSaved.Inc()
	s.logger.Info("snapshot saved", "backend", s.driver, "taken_at", snap.Key(), "places", len(snap.Mentions))
	return nil
}

// LoadAll reads every stored snapshot. Rows that fail to parse are logged and skipped.
func (s *Store) LoadAll(ctx context.Context) (domain.History, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT taken_at, mentions FROM snapshots")
	if err != nil {
		return nil, fmt.Errorf("%w: query snapshots: %w", domain.ErrStorageFault, err)
	}
	defer rows.Close()

	var history domain.History
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan snapshot: %w", domain.ErrStorageFault, err)
		}

		snap, err := domain.ParseSnapshot(key, []byte(payload))
		if err != nil {
			s.metrics.SnapshotLoadFaults.Inc()
			s.logger.Warn("skipping unreadable snapshot", "taken_at", key, "error", err)
			continue
		}
		history = append(history, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate snapshots: %w", domain.ErrStorageFault, err)
	}

	s.metrics.SnapshotsLoaded.Add(float64(len(history)))
	return history, nil
}

func (s *Store) arg(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
