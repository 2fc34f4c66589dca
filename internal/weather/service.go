package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/i474232898/weather-lookup/internal/logger"
)

// Service is the single entry point for current-weather lookups.
// It guards input, delegates to one provider and guarantees every
// failure is classified as ErrNotFound or ErrQueryFailed.
type Service struct {
	provider Provider
	log      *logger.Logger
}

// NewService creates a new Service. A nil logger discards output.
func NewService(provider Provider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		provider: provider,
		log:      log,
	}
}

// FetchWeather looks up current conditions for city.
// Blank input returns ErrEmptyCity without contacting the provider.
func (s *Service) FetchWeather(ctx context.Context, city string) (Result, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Result{}, ErrEmptyCity
	}
	if s.provider == nil {
		return Result{}, fmt.Errorf("%w: no weather provider configured", ErrQueryFailed)
	}

	res, err := s.provider.Fetch(ctx, city)
	if err != nil {
		err = classify(err)
		s.log.Debugw("weather_fetch_failed", "provider", s.provider.Name(), "city", city, "err", err)
		return Result{}, err
	}
	if !res.Finite() {
		return Result{}, fmt.Errorf("%w: provider %s returned non-finite values", ErrQueryFailed, s.provider.Name())
	}

	s.log.Debugw("weather_fetched", "provider", s.provider.Name(), "city", city)
	return res, nil
}

// classify makes sure err carries one of the two public categories.
func classify(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrQueryFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}
