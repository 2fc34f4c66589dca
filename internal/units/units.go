package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit selects how temperatures are displayed.
type Unit string

const (
	Metric   Unit = "metric"
	Imperial Unit = "imperial"
)

// ParseUnit accepts "metric" or "imperial" (case-insensitive).
// An empty string yields Metric.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Metric):
		return Metric, nil
	case string(Imperial):
		return Imperial, nil
	default:
		return "", fmt.Errorf("unknown unit %q", s)
	}
}

// Symbol returns the temperature suffix for u.
func (u Unit) Symbol() string {
	if u == Imperial {
		return "°F"
	}
	return "°C"
}

// ToFahrenheit converts Celsius to Fahrenheit, rounded to 3 fractional digits.
func ToFahrenheit(celsius float64) float64 {
	return math.Round((celsius*9/5+32)*1000) / 1000
}

// FormatTemperature renders a Celsius value in the requested unit.
// Fahrenheit always carries three fractional digits.
func FormatTemperature(celsius float64, u Unit) string {
	if u == Imperial {
		return strconv.FormatFloat(ToFahrenheit(celsius), 'f', 3, 64) + " " + u.Symbol()
	}
	return strconv.FormatFloat(celsius, 'f', -1, 64) + " " + Metric.Symbol()
}
