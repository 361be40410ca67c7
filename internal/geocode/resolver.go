// Package geocode resolves place names to coordinates with a per-pass,
// resolve-once cache in front of a domain.Geocoder.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Observer is notified once per external lookup.
type Observer interface {
	LookupDone(res domain.Resolution)
}

// Options configures a Resolver.
type Options struct {
	Country  string
	Aliases  Aliases
	Observer Observer
}

// Resolver memoizes geocoding outcomes, including failures, for the lifetime
// of one compilation pass. Each distinct place is looked up at most once, even
// under concurrent callers.
type Resolver struct {
	geocoder domain.Geocoder
	country  string
	aliases  Aliases
	observer Observer
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu    sync.Mutex
	cache map[string]domain.Resolution
	group singleflight.Group
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver(geocoder domain.Geocoder, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	aliases := opts.Aliases
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Resolver{
		geocoder: geocoder,
		country:  opts.Country,
		aliases:  aliases,
		observer: opts.Observer,
		logger:   logger,
		metrics:  metrics,
		cache:    make(map[string]domain.Resolution),
	}
}

// Resolve returns the cached outcome for place, performing the external lookup
// on first use. Failures come back as NotFound or Failed outcomes, never as errors.
func (r *Resolver) Resolve(ctx context.Context, place string) domain.Resolution {
	place = domain.NormalizePlace(place)

	if res, ok := r.cached(place); ok {
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return res
	}

	v, _, _ := r.group.Do(place, func() (any, error) {
		// A caller that finished just before this flight started may have filled the cache.
		if res, ok := r.cached(place); ok {
			return res, nil
		}
		r.metrics.GeocodeCache.WithLabelValues("miss").Inc()
		res := r.lookup(ctx, place)
		r.mu.Lock()
		r.cache[place] = res
		r.mu.Unlock()
		return res, nil
	})
	return v.(domain.Resolution)
}

// ResolveAll warms the cache for places using up to concurrency lookups at a
// time and returns the outcome per place.
func (r *Resolver) ResolveAll(ctx context.Context, places []string, concurrency int) map[string]domain.Resolution {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu  sync.Mutex
		out = make(map[string]domain.Resolution, len(places))
		g   errgroup.Group
	)
	g.SetLimit(concurrency)

	for _, place := range places {
		g.Go(func() error {
			res := r.Resolve(ctx, place)
			mu.Lock()
			out[res.Place] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Len returns the number of cached outcomes.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

func (r *Resolver) cached(place string) (domain.Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[place]
	return res, ok
}

func (r *Resolver) lookup(ctx context.Context, place string) domain.Resolution {
	query := r.aliases.Translate(place)
	res := domain.Resolution{Place: place, Query: query}

	result, err := r.geocoder.ForwardGeocode(ctx, query, r.country)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		res.Outcome = domain.OutcomeNotFound
		res.Err = fmt.Errorf("%w: %q: %w", domain.ErrResolutionFault, query, err)
	case err != nil:
		res.Outcome = domain.OutcomeFailed
		res.Err = fmt.Errorf("%w: %q: %w", domain.ErrResolutionFault, query, err)
	case !result.Valid():
		res.Outcome = domain.OutcomeFailed
		res.Err = fmt.Errorf("%w: %q: provider returned invalid coordinate %v",
			domain.ErrResolutionFault, query, result.Coordinate)
	default:
		res.Outcome = domain.OutcomeResolved
		res.Coord = result.Coordinate
	}

	r.metrics.GeocodeRequests.WithLabelValues(res.Outcome.String()).Inc()
	if res.Resolved() {
		r.logger.Debug("place resolved", "place", place, "query", query,
			"lat", res.Coord.Lat, "lon", res.Coord.Lon)
	} else {
		r.logger.Warn("place unresolved, dropping from frames",
			"place", place, "query", query, "outcome", res.Outcome.String(), "error", res.Err)
	}
	if r.observer != nil {
		r.observer.LookupDone(res)
	}
	return res
}
