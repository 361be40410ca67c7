package domain

import (
	"context"

	"github.com/golang/geo/s2"
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within latitude/longitude bounds.
func (c Coordinate) Valid() bool {
	return s2.LatLngFromDegrees(c.Lat, c.Lon).IsValid()
}

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Coordinate
	DisplayName string
	Confidence  float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves free-text place queries to coordinates.
type Geocoder interface {
	// ForwardGeocode looks up query within the given ISO 3166-1 alpha-2 country
	// scope. It returns ErrNotFound when the provider has no match.
	ForwardGeocode(ctx context.Context, query, country string) (GeocodingResult, error)
}

// Outcome classifies a resolution attempt.
type Outcome int

const (
	OutcomeResolved Outcome = iota
	OutcomeNotFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolution is the cached outcome of resolving one place. Coordinate is only
// meaningful when Outcome is OutcomeResolved.
type Resolution struct {
	Place   string
	Query   string
	Coord   Coordinate
	Outcome Outcome
	Err     error
}

// Resolved reports whether the place has usable coordinates.
func (r Resolution) Resolved() bool {
	return r.Outcome == OutcomeResolved
}

// ItemSource fetches ranked items from an upstream source.
type ItemSource interface {
	FetchRanked(ctx context.Context, source string, limit int) ([]Item, error)
}
