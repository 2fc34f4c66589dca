package weather

import "math"

// Result is the normalized snapshot of one successful current-weather lookup.
// Temperatures are always Celsius; conversion happens at display time.
type Result struct {
	Temperature  float64 `json:"temperatureC"`
	FeelsLike    float64 `json:"feelsLikeC"`
	TempMin      float64 `json:"minTemperatureC"`
	TempMax      float64 `json:"maxTemperatureC"`
	HumidityPct  int     `json:"humidityPercent"`
	PressureHPa  float64 `json:"pressureHPa"`
	WindSpeedKph float64 `json:"windSpeedKph"`
	Description  string  `json:"description"`
	Icon         string  `json:"iconId"`
}

// Finite reports whether every numeric field holds a finite value.
// Ranges are not checked; provider values pass through unchanged.
func (r Result) Finite() bool {
	for _, v := range []float64{r.Temperature, r.FeelsLike, r.TempMin, r.TempMax, r.PressureHPa, r.WindSpeedKph} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
