package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	Port     string
	LogLevel string

	// HTTPTimeout bounds each outbound provider request.
	HTTPTimeout time.Duration
	// QueryTimeout bounds a whole session query (0 = none).
	QueryTimeout time.Duration
	// RefreshInterval re-issues the last city periodically (0 = disabled).
	RefreshInterval time.Duration

	ProviderMaxRetries     int
	ProviderBreakerEnabled bool
}

var defaults = map[string]string{
	"OPENWEATHER_API_KEY":      "",
	"OPENWEATHER_BASE_URL":     providers.DefaultOpenWeatherURL,
	"PORT":                     "8080",
	"LOG_LEVEL":                "info",
	"HTTP_TIMEOUT":             "10s",
	"QUERY_TIMEOUT":            "0s",
	"REFRESH_INTERVAL":         "0s",
	"PROVIDER_MAX_RETRIES":     "0",
	"PROVIDER_BREAKER_ENABLED": "false",
}

// Load reads configuration from the environment with sensible defaults.
// A .env file, if any, must already be loaded into the environment.
func Load() (*AppConfig, error) {
	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := &AppConfig{
		OpenWeatherAPIKey:  strings.TrimSpace(v.GetString("OPENWEATHER_API_KEY")),
		OpenWeatherBaseURL: v.GetString("OPENWEATHER_BASE_URL"),
		Port:               v.GetString("PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}

	var err error
	if cfg.HTTPTimeout, err = duration(v, "HTTP_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = duration(v, "QUERY_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = duration(v, "REFRESH_INTERVAL"); err != nil {
		return nil, err
	}

	retries, err := strconv.Atoi(v.GetString("PROVIDER_MAX_RETRIES"))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES: %q", v.GetString("PROVIDER_MAX_RETRIES"))
	}
	cfg.ProviderMaxRetries = retries

	breaker, err := strconv.ParseBool(v.GetString("PROVIDER_BREAKER_ENABLED"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_BREAKER_ENABLED: %w", err)
	}
	cfg.ProviderBreakerEnabled = breaker

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
