package domain

import "errors"

// Fault classes. Concrete errors wrap one of these together with their cause,
// so callers classify with errors.Is.
var (
	// ErrStorageFault means a snapshot could not be written or the corpus could not be read.
	ErrStorageFault = errors.New("storage fault")

	// ErrDataFault means a single persisted snapshot is corrupt or unparseable.
	ErrDataFault = errors.New("data fault")

	// ErrResolutionFault means a geocoding lookup failed for one place.
	ErrResolutionFault = errors.New("resolution fault")

	// ErrSourceFault means an upstream ranked-item source could not be fetched.
	ErrSourceFault = errors.New("source fault")

	// ErrNotFound is returned by a Geocoder when the query has no match.
	ErrNotFound = errors.New("not found")
)
