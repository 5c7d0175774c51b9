package models

import (
	"time"
)

// Open-Meteo daily field names
const (
	FieldTime               = "time"
	FieldWeatherCode        = "weather_code"
	FieldTemperature2mMax   = "temperature_2m_max"
	FieldTemperature2mMin   = "temperature_2m_min"
	FieldPrecipitationSum   = "precipitation_sum"
	FieldRainSum            = "rain_sum"
	FieldPrecipitationHours = "precipitation_hours"
	FieldWindSpeed10mMax    = "wind_speed_10m_max"
)

// DailyFields is the full set of daily variables requested from Open-Meteo,
// in the order the API documents them.
var DailyFields = []string{
	FieldWeatherCode,
	FieldTemperature2mMax,
	FieldTemperature2mMin,
	FieldPrecipitationSum,
	FieldRainSum,
	FieldPrecipitationHours,
	FieldWindSpeed10mMax,
}

// Forecast represents a daily response from the Open-Meteo archive or forecast API
type Forecast struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Timezone         string            `json:"timezone"`
	Elevation        float64           `json:"elevation"`
	DailyUnits       map[string]string `json:"daily_units,omitempty"`
	Daily            *Daily            `json:"daily,omitempty"`
	GenerationTimeMs float64           `json:"generation_time_ms"`
}

// Daily holds the parallel per-day arrays of a response. A nil slice means
// the API did not return that field.
type Daily struct {
	Time               []string      `json:"time,omitempty"`
	WeatherCode        []WeatherCode `json:"weather_code,omitempty"`
	Temperature2mMax   []Reading     `json:"temperature_2m_max,omitempty"`
	Temperature2mMin   []Reading     `json:"temperature_2m_min,omitempty"`
	PrecipitationSum   []Reading     `json:"precipitation_sum,omitempty"`
	RainSum            []Reading     `json:"rain_sum,omitempty"`
	PrecipitationHours []Reading     `json:"precipitation_hours,omitempty"`
	WindSpeed10mMax    []Reading     `json:"wind_speed_10m_max,omitempty"`
}

// Column returns the numeric column for an Open-Meteo field name.
// ok is false for names that are not numeric daily fields.
func (d *Daily) Column(field string) (values []Reading, ok bool) {
	switch field {
	case FieldTemperature2mMax:
		return d.Temperature2mMax, true
	case FieldTemperature2mMin:
		return d.Temperature2mMin, true
	case FieldPrecipitationSum:
		return d.PrecipitationSum, true
	case FieldRainSum:
		return d.RainSum, true
	case FieldPrecipitationHours:
		return d.PrecipitationHours, true
	case FieldWindSpeed10mMax:
		return d.WindSpeed10mMax, true
	}
	return nil, false
}

// SourceKind tags where an observation came from
type SourceKind string

const (
	KindHistorical SourceKind = "Historical"
	KindForecast   SourceKind = "Forecast"
)

// Valid reports whether k is one of the known source kinds
func (k SourceKind) Valid() bool {
	return k == KindHistorical || k == KindForecast
}

// DailyObservation is one calendar day's weather summary from a single source
type DailyObservation struct {
	Date               string      `json:"date"`
	Day                time.Time   `json:"-"`
	WeatherCode        WeatherCode `json:"weather_code"`
	Description        string      `json:"weather"`
	MaxTemp            Reading     `json:"max_temp"`
	MinTemp            Reading     `json:"min_temp"`
	PrecipitationSum   Reading     `json:"precipitation_sum"`
	RainSum            Reading     `json:"rain_sum"`
	PrecipitationHours Reading     `json:"precipitation_hours"`
	WindSpeedMax       Reading     `json:"wind_speed_max"`
	Source             SourceKind  `json:"type"`
}

// Value returns the reading backing metric m
func (o DailyObservation) Value(m Metric) Reading {
	switch m {
	case MaxTemp:
		return o.MaxTemp
	case MinTemp:
		return o.MinTemp
	case Rainfall:
		return o.PrecipitationSum
	case RainSum:
		return o.RainSum
	case RainHours:
		return o.PrecipitationHours
	case WindSpeed:
		return o.WindSpeedMax
	}
	return Reading{}
}

// CombinedSeries is historical observations followed by forecast observations.
// Dates may repeat across the two sources.
type CombinedSeries []DailyObservation

// LongFormRow is one (date, metric) pair of a combined series
type LongFormRow struct {
	Date        string     `json:"date"`
	Day         time.Time  `json:"-"`
	Source      SourceKind `json:"type"`
	Description string     `json:"weather"`
	Metric      Metric     `json:"metric"`
	Value       Reading    `json:"value"`
}

// Period is the date window a month report covers
type Period struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	ForecastDays int       `json:"forecast_days"`
}

// StartDate returns the first archive day as YYYY-MM-DD
func (p Period) StartDate() string {
	return p.Start.Format(DateLayout)
}

// EndDate returns the last archive day as YYYY-MM-DD
func (p Period) EndDate() string {
	return p.End.Format(DateLayout)
}

// ForecastEnd returns the last forecast day as YYYY-MM-DD
func (p Period) ForecastEnd() string {
	return p.End.AddDate(0, 0, p.ForecastDays).Format(DateLayout)
}
