package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultOpenWeatherURL is the current-weather endpoint of OpenWeatherMap.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherConfig configures an OpenWeatherProvider.
type OpenWeatherConfig struct {
	APIKey         string
	BaseURL        string
	Client         *http.Client
	MaxRetries     int
	BreakerEnabled bool
}

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg OpenWeatherConfig) *OpenWeatherProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
	}
	if cfg.BreakerEnabled {
		p.circuit = newCircuitBreaker("openweather")
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// owmPayload mirrors the fields read from the current-weather response.
// Pointers distinguish absent fields from zero values.
type owmPayload struct {
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *float64 `json:"pressure"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
	} `json:"weather"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string) (weather.Result, error) {
	if p.apiKey == "" {
		return weather.Result{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrQueryFailed)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("units", "metric")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Result{}, fmt.Errorf("%w: %s: %v", weather.ErrQueryFailed, p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return weather.Result{}, fmt.Errorf("%w: %q", weather.ErrNotFound, city)
	}

	var payload owmPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Result{}, fmt.Errorf("%w: decode %s response: %v", weather.ErrQueryFailed, p.name, err)
	}

	res, err := payload.toResult()
	if err != nil {
		return weather.Result{}, fmt.Errorf("%w: %s: %v", weather.ErrQueryFailed, p.name, err)
	}
	return res, nil
}

func (o owmPayload) toResult() (weather.Result, error) {
	if o.Main == nil {
		return weather.Result{}, missingField("main")
	}
	if o.Wind == nil || o.Wind.Speed == nil {
		return weather.Result{}, missingField("wind.speed")
	}
	if len(o.Weather) == 0 {
		return weather.Result{}, missingField("weather[0]")
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{"main.temp", o.Main.Temp},
		{"main.feels_like", o.Main.FeelsLike},
		{"main.temp_min", o.Main.TempMin},
		{"main.temp_max", o.Main.TempMax},
		{"main.humidity", o.Main.Humidity},
		{"main.pressure", o.Main.Pressure},
		{"wind.speed", o.Wind.Speed},
	}
	for _, f := range fields {
		if f.v == nil {
			return weather.Result{}, missingField(f.name)
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return weather.Result{}, fmt.Errorf("field %s is not finite", f.name)
		}
	}

	cond := o.Weather[0]
	if cond.Description == nil {
		return weather.Result{}, missingField("weather[0].description")
	}
	if cond.Icon == nil {
		return weather.Result{}, missingField("weather[0].icon")
	}

	return weather.Result{
		Temperature:  *o.Main.Temp,
		FeelsLike:    *o.Main.FeelsLike,
		TempMin:      *o.Main.TempMin,
		TempMax:      *o.Main.TempMax,
		HumidityPct:  int(math.Round(*o.Main.Humidity)),
		PressureHPa:  *o.Main.Pressure,
		WindSpeedKph: *o.Wind.Speed,
		Description:  *cond.Description,
		Icon:         *cond.Icon,
	}, nil
}

func missingField(name string) error {
	return fmt.Errorf("missing field %s", name)
}
