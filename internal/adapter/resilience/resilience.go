// Package resilience wraps outbound calls in failsafe-go retry and circuit
// breaker policies.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ErrPermanent marks an HTTP failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

// NewHTTPRetryExecutor retries failed HTTP calls with jittered exponential
// backoff. Errors wrapping ErrPermanent are returned immediately.
//
//nolint:bodyclose // *http.Response is a type parameter here, not a live response
func NewHTTPRetryExecutor(maxRetries int, baseDelay, maxDelay time.Duration) failsafe.Executor[*http.Response] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}

	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(baseDelay, maxDelay).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *http.Response, err error) bool {
			return err != nil && !errors.Is(err, ErrPermanent)
		}).
		Build()

	return failsafe.With(retry)
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// BreakerGeocoder trips after repeated provider failures so a dead geocoder
// fails fast for the rest of a pass. Not-found answers and caller cancellation
// do not count as failures.
type BreakerGeocoder struct {
	inner    domain.Geocoder
	executor failsafe.Executor[domain.GeocodingResult]
}

// NewBreakerGeocoder wraps inner with a circuit breaker that opens when 5 of
// the last 10 calls failed and half-opens after delay.
func NewBreakerGeocoder(inner domain.Geocoder, delay time.Duration, logger *slog.Logger) *BreakerGeocoder {
	cb := circuitbreaker.NewBuilder[domain.GeocodingResult]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(delay).
		WithSuccessThreshold(1).
		HandleIf(func(_ domain.GeocodingResult, err error) bool {
			return err != nil && !isCallerError(err)
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.Warn("geocoder circuit breaker state change",
				"from_state", stateName(event.OldState),
				"to_state", stateName(event.NewState),
			)
		}).
		Build()

	return &BreakerGeocoder{inner: inner, executor: failsafe.With(cb)}
}

func (b *BreakerGeocoder) ForwardGeocode(ctx context.Context, query, country string) (domain.GeocodingResult, error) {
	return b.executor.WithContext(ctx).Get(func() (domain.GeocodingResult, error) {
		return b.inner.ForwardGeocode(ctx, query, country)
	})
}

// isCallerError reports errors that say nothing about provider health.
func isCallerError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}
