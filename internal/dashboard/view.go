package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-lookup/internal/session"
	"github.com/i474232898/weather-lookup/internal/units"
)

const iconURLFormat = "http://openweathermap.org/img/w/%s.png"

// View holds display-ready values derived from a session snapshot.
// Weather is nil unless the snapshot is resolved.
type View struct {
	Status  session.Status `json:"status"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
	City    string         `json:"city,omitempty"`
	Unit    units.Unit     `json:"unit"`
	Weather *WeatherView   `json:"weather,omitempty"`
}

type WeatherView struct {
	Temperature string `json:"temperature"`
	FeelsLike   string `json:"feelsLike"`
	TempMin     string `json:"minTemperature"`
	TempMax     string `json:"maxTemperature"`
	Humidity    string `json:"humidity"`
	Wind        string `json:"wind"`
	Pressure    string `json:"pressure"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl"`
}

// Render derives the display values for snap in unit u.
// Temperatures always start from the stored Celsius values.
func Render(snap session.Snapshot, u units.Unit) View {
	v := View{
		Status:  snap.Status,
		Loading: snap.Loading(),
		Error:   snap.Error,
		City:    strings.ToUpper(snap.City),
		Unit:    u,
	}
	if snap.Status != session.StatusResolved || snap.Result == nil {
		return v
	}

	r := snap.Result
	v.Weather = &WeatherView{
		Temperature: units.FormatTemperature(r.Temperature, u),
		FeelsLike:   units.FormatTemperature(r.FeelsLike, u),
		TempMin:     units.FormatTemperature(r.TempMin, u),
		TempMax:     units.FormatTemperature(r.TempMax, u),
		Humidity:    strconv.Itoa(r.HumidityPct) + "%",
		Wind:        formatNumber(r.WindSpeedKph) + " kph",
		Pressure:    formatNumber(r.PressureHPa) + " hPa",
		Description: r.Description,
		IconURL:     IconURL(r.Icon),
	}
	return v
}

// IconURL returns the image location for an OpenWeatherMap icon id.
func IconURL(icon string) string {
	if icon == "" {
		return ""
	}
	return fmt.Sprintf(iconURLFormat, icon)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
