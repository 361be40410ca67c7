package filestore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string, *observability.Metrics) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "historic")
	m := observability.NewMetricsForTesting()
	return New(dir, slog.New(slog.NewTextHandler(io.Discard, nil)), m), dir, m
}

func at(day, hour int) time.Time {
	return time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
}

func TestSave_RoundTrip(t *testing.T) {
	s, dir, m := newTestStore(t)
	snap := domain.Snapshot{TakenAt: at(2, 10), Mentions: domain.Mentions{"kyiv": 3, "kharkiv": 1}}

	require.NoError(t, s.Save(context.Background(), snap))

	data, err := os.ReadFile(filepath.Join(dir, "2024-01-02 10:00 UTC"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kyiv":3,"kharkiv":1}`, string(data))

	history, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, snap.TakenAt.Equal(history[0].TakenAt))
	assert.Equal(t, snap.Mentions, history[0].Mentions)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotsSaved), 0)
}

func TestSave_RefusesOverwrite(t *testing.T) {
	s, dir, _ := newTestStore(t)
	first := domain.Snapshot{TakenAt: at(2, 10), Mentions: domain.Mentions{"kyiv": 3}}
	second := domain.Snapshot{TakenAt: at(2, 10), Mentions: domain.Mentions{"kyiv": 99}}

	require.NoError(t, s.Save(context.Background(), first))
	err := s.Save(context.Background(), second)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageFault)

	data, readErr := os.ReadFile(filepath.Join(dir, "2024-01-02 10:00 UTC"))
	require.NoError(t, readErr)
	assert.JSONEq(t, `{"kyiv":3}`, string(data))
}

func TestSave_UnwritableDestination(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	s := New(filepath.Join(blocker, "historic"), slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	err := s.Save(context.Background(), domain.Snapshot{TakenAt: at(1, 0)})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageFault)
}

func TestLoadAll_SkipsCorruptEntry(t *testing.T) {
	s, dir, m := newTestStore(t)
	for day := 1; day <= 3; day++ {
		require.NoError(t, s.Save(context.Background(), domain.Snapshot{
			TakenAt:  at(day, 12),
			Mentions: domain.Mentions{"kyiv": day},
		}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-01-04 12:00 UTC"), []byte(`{"kyiv": tru`), 0o644))

	history, err := s.LoadAll(context.Background())

	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotLoadFaults), 0)
}

func TestLoadAll_SkipsUnparseableNamesAndHiddenFiles(t *testing.T) {
	s, dir, m := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitkeep"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "24.02.22 06:00 UTC"), []byte(`{"Kyiv": 7}`), 0o644))

	history, err := s.LoadAll(context.Background())

	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.Mentions{"kyiv": 7}, history[0].Mentions)
	assert.Equal(t, time.Date(2022, time.February, 24, 6, 0, 0, 0, time.UTC), history[0].TakenAt)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotLoadFaults), 0)
}

func TestLoadAll_MissingDirIsEmpty(t *testing.T) {
	s, _, _ := newTestStore(t)

	history, err := s.LoadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, history)
}
