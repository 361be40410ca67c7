package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type countingGeocoder struct {
	mu        sync.Mutex
	calls     map[string]int
	queries   []string
	countries []string
	results   map[string]domain.GeocodingResult
	errs      map[string]error
	delay     time.Duration
}

func newCountingGeocoder() *countingGeocoder {
	return &countingGeocoder{
		calls:   make(map[string]int),
		results: make(map[string]domain.GeocodingResult),
		errs:    make(map[string]error),
	}
}

func (g *countingGeocoder) ForwardGeocode(_ context.Context, query, country string) (domain.GeocodingResult, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[query]++
	g.queries = append(g.queries, query)
	g.countries = append(g.countries, country)
	if err, ok := g.errs[query]; ok {
		return domain.GeocodingResult{}, err
	}
	if res, ok := g.results[query]; ok {
		return res, nil
	}
	return domain.GeocodingResult{}, domain.ErrNotFound
}

func (g *countingGeocoder) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queries)
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []domain.Resolution
}

func (o *recordingObserver) LookupDone(res domain.Resolution) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, res)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(g domain.Geocoder, opts Options) (*Resolver, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewResolver(g, opts, discardLogger(), m), m
}

var kyiv = domain.GeocodingResult{Coordinate: domain.Coordinate{Lat: 50.4500336, Lon: 30.5241361}, DisplayName: "Kyiv, Ukraine"}

// --- tests ---

func TestResolver_IdempotentSingleLookup(t *testing.T) {
	g := newCountingGeocoder()
	g.results["kyiv"] = kyiv
	r, m := newTestResolver(g, Options{Country: "ua"})

	first := r.Resolve(context.Background(), "kyiv")
	second := r.Resolve(context.Background(), "kyiv")

	assert.Equal(t, 1, g.total(), "second call must be served from cache")
	assert.Equal(t, first, second)
	assert.True(t, first.Resolved())
	assert.Equal(t, kyiv.Coordinate, first.Coord)
	assert.Equal(t, []string{"ua"}, g.countries)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("miss")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("resolved")), 0)
}

func TestResolver_NormalizesPlaceKey(t *testing.T) {
	g := newCountingGeocoder()
	g.results["kyiv"] = kyiv
	r, _ := newTestResolver(g, Options{})

	a := r.Resolve(context.Background(), "Kyiv")
	b := r.Resolve(context.Background(), "  KYIV ")

	assert.Equal(t, 1, g.total())
	assert.Equal(t, "kyiv", a.Place)
	assert.Equal(t, a, b)
}

func TestResolver_NotFoundIsCached(t *testing.T) {
	g := newCountingGeocoder()
	r, m := newTestResolver(g, Options{})

	first := r.Resolve(context.Background(), "atlantis")
	second := r.Resolve(context.Background(), "atlantis")

	assert.Equal(t, 1, g.total())
	assert.Equal(t, domain.OutcomeNotFound, first.Outcome)
	assert.False(t, first.Resolved())
	assert.ErrorIs(t, first.Err, domain.ErrResolutionFault)
	assert.ErrorIs(t, first.Err, domain.ErrNotFound)
	assert.Equal(t, first, second)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("not_found")), 0)
}

func TestResolver_TransportFailureIsCachedAsFailed(t *testing.T) {
	g := newCountingGeocoder()
	g.errs["kyiv"] = errors.New("connection reset by peer")
	r, _ := newTestResolver(g, Options{})

	res := r.Resolve(context.Background(), "kyiv")
	_ = r.Resolve(context.Background(), "kyiv")

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrResolutionFault)
	assert.Contains(t, res.Err.Error(), "connection reset")
	assert.Equal(t, 1, g.total(), "failures must not be retried within a pass")
}

func TestResolver_InvalidCoordinateFails(t *testing.T) {
	g := newCountingGeocoder()
	g.results["nowhere"] = domain.GeocodingResult{Coordinate: domain.Coordinate{Lat: 123, Lon: 0}}
	r, _ := newTestResolver(g, Options{})

	res := r.Resolve(context.Background(), "nowhere")

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrResolutionFault)
}

func TestResolver_AppliesAliasesBeforeLookup(t *testing.T) {
	g := newCountingGeocoder()
	g.results["kyiv"] = kyiv
	r, _ := newTestResolver(g, Options{Aliases: Aliases{"kiev": "kyiv"}})

	res := r.Resolve(context.Background(), "Kiev")

	require.True(t, res.Resolved())
	assert.Equal(t, "kiev", res.Place)
	assert.Equal(t, "kyiv", res.Query)
	assert.Equal(t, []string{"kyiv"}, g.queries)
}

func TestResolver_ObserverNotifiedOncePerLookup(t *testing.T) {
	g := newCountingGeocoder()
	g.results["kyiv"] = kyiv
	obs := &recordingObserver{}
	r, _ := newTestResolver(g, Options{Observer: obs})

	r.Resolve(context.Background(), "kyiv")
	r.Resolve(context.Background(), "kyiv")
	r.Resolve(context.Background(), "atlantis")

	require.Len(t, obs.seen, 2)
	assert.True(t, obs.seen[0].Resolved())
	assert.Equal(t, domain.OutcomeNotFound, obs.seen[1].Outcome)
}

func TestResolver_ConcurrentCallersShareOneLookup(t *testing.T) {
	g := newCountingGeocoder()
	g.results["kyiv"] = kyiv
	g.results["lviv"] = domain.GeocodingResult{Coordinate: domain.Coordinate{Lat: 49.84, Lon: 24.03}}
	g.delay = 20 * time.Millisecond
	r, _ := newTestResolver(g, Options{})

	places := make([]string, 0, 40)
	for i := 0; i < 20; i++ {
		places = append(places, "kyiv", "lviv")
	}

	out := r.ResolveAll(context.Background(), places, 8)

	assert.Len(t, out, 2)
	assert.Equal(t, 1, g.calls["kyiv"])
	assert.Equal(t, 1, g.calls["lviv"])
	assert.Equal(t, 2, r.Len())
}

func TestResolver_ResolveAllIncludesUnresolved(t *testing.T) {
	g := newCountingGeocoder()
	g.results["kyiv"] = kyiv
	r, _ := newTestResolver(g, Options{})

	out := r.ResolveAll(context.Background(), []string{"kyiv", "atlantis"}, 0)

	require.Len(t, out, 2)
	assert.True(t, out["kyiv"].Resolved())
	assert.False(t, out["atlantis"].Resolved())
}
