// Package weathercode resolves WMO weather interpretation codes, as used by
// Open-Meteo, to human readable conditions.
package weathercode

import (
	"strconv"

	"monthweather/internal/models"
)

// NullMarker is returned for an absent code
const NullMarker = "null"

var descriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Drizzle: Light",
	53: "Drizzle: Moderate",
	55: "Drizzle: Dense intensity",
	56: "Freezing Drizzle: Light",
	57: "Freezing Drizzle: Dense intensity",
	61: "Rain: Slight",
	63: "Rain: Moderate",
	65: "Rain: Heavy intensity",
	66: "Freezing Rain: Light",
	67: "Freezing Rain: Heavy intensity",
	71: "Snow fall: Slight",
	73: "Snow fall: Moderate",
	75: "Snow fall: Heavy intensity",
	77: "Snow grains",
	80: "Rain showers: Slight",
	81: "Rain showers: Moderate",
	82: "Rain showers: Violent",
	85: "Snow showers: Slight",
	86: "Snow showers: Heavy",
	95: "Thunderstorm: Slight or moderate",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Describe returns the condition for code. Codes outside the WMO table fall
// back to their decimal form and an absent code to NullMarker.
func Describe(code models.WeatherCode) string {
	if !code.Valid {
		return NullMarker
	}
	return Lookup(code.Code)
}

// Lookup is Describe for a code known to be present
func Lookup(code int) string {
	if desc, ok := descriptions[code]; ok {
		return desc
	}
	return strconv.Itoa(code)
}
