package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("query is required")
	// ErrInvalidPlan signals a query plan that violates planner guarantees.
	ErrInvalidPlan = errors.New("invalid query plan")
	// ErrLocationNotFound signals that a place name could not be geocoded.
	ErrLocationNotFound = errors.New("location not found")
	// ErrUnresolvedLocation signals a plan that still carries a location placeholder.
	ErrUnresolvedLocation = errors.New("plan contains unresolved location placeholder")
	// ErrListingNotFound signals a listing missing from the index.
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingStore signals a listing store failure.
	ErrListingStore = errors.New("listing store error")
	// ErrPlannerProviderError signals a language model provider failure.
	ErrPlannerProviderError = errors.New("planner provider error")
	// ErrInvalidPool signals an unknown popularity pool.
	ErrInvalidPool = errors.New("invalid pool")
	// ErrGeocoderError signals a geocoding provider failure.
	ErrGeocoderError = errors.New("geocoding provider error")
)
