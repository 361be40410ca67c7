//go:build nominatim

package nominatim

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the public Nominatim instance.
// Run with: go test -tags=nominatim ./internal/adapter/nominatim/ -v -count=1

func TestSmoke_ForwardGeocode(t *testing.T) {
	c := NewClient(Options{
		UserAgent:     "place-mention-heatmap-smoke/1.0",
		Language:      "en",
		Timeout:       10 * time.Second,
		RatePerSecond: 1,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	result, err := c.ForwardGeocode(context.Background(), "Kharkiv", "ua")
	require.NoError(t, err)

	assert.InDelta(t, 49.99, result.Lat, 0.2, "lat should be near Kharkiv")
	assert.InDelta(t, 36.23, result.Lon, 0.2, "lon should be near Kharkiv")
	assert.Contains(t, result.DisplayName, "Kharkiv")
}
