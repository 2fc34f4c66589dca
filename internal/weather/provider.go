package weather

import (
	"context"
	"errors"
)

var (
	// ErrEmptyCity is returned when the city name is blank after trimming.
	ErrEmptyCity = errors.New("city name is empty")

	// ErrNotFound means the provider reported no matching city.
	ErrNotFound = errors.New("city not found")

	// ErrQueryFailed covers every other failure: transport, unexpected status,
	// malformed body or missing fields.
	ErrQueryFailed = errors.New("weather query failed")
)

// Provider abstracts the upstream current-weather data source.
// Implementations must classify failures with ErrNotFound or ErrQueryFailed.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, city string) (Result, error)
}
