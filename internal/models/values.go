package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical day format used by Open-Meteo daily responses
const DateLayout = "2006-01-02"

var dayLayouts = []string{DateLayout, "2006-01-02T15:04", time.RFC3339}

// ParseDay parses an Open-Meteo day string. ok is false when s is not a
// recognisable date.
func ParseDay(s string) (day time.Time, ok bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

var nullLiteral = []byte("null")

// Reading is a numeric daily value that may be missing. A missing reading is
// never the same as a zero reading.
type Reading struct {
	Value float64
	Valid bool
}

// Float returns a present reading holding v. NaN and infinities are missing.
func Float(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Reading{}
	}
	return Reading{Value: v, Valid: true}
}

// Missing is the explicit missing marker
var Missing = Reading{}

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else
// decodes as missing rather than failing the whole response.
func (r *Reading) UnmarshalJSON(b []byte) error {
	*r = Reading{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, nullLiteral) {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*r = Float(v)
	return nil
}

// MarshalJSON writes null for a missing reading
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return nullLiteral, nil
	}
	return json.Marshal(r.Value)
}

func (r Reading) String() string {
	if !r.Valid {
		return "missing"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// WeatherCode is a WMO weather interpretation code that may be absent
type WeatherCode struct {
	Code  int
	Valid bool
}

// Code returns a present weather code
func Code(c int) WeatherCode {
	return WeatherCode{Code: c, Valid: true}
}

// UnmarshalJSON accepts integers, integral floats (61.0) and null
func (w *WeatherCode) UnmarshalJSON(b []byte) error {
	*w = WeatherCode{}
	var r Reading
	if err := r.UnmarshalJSON(b); err != nil || !r.Valid {
		return nil
	}
	if r.Value != math.Trunc(r.Value) || math.Abs(r.Value) > math.MaxInt32 {
		return nil
	}
	*w = Code(int(r.Value))
	return nil
}

// MarshalJSON writes null for an absent code
func (w WeatherCode) MarshalJSON() ([]byte, error) {
	if !w.Valid {
		return nullLiteral, nil
	}
	return []byte(strconv.Itoa(w.Code)), nil
}

// Metric is one of the plotted daily values
type Metric int

const (
	MaxTemp Metric = iota
	MinTemp
	Rainfall
	RainSum
	RainHours
	WindSpeed
)

// Metrics lists every metric in chart legend order
var Metrics = []Metric{MaxTemp, MinTemp, Rainfall, RainSum, RainHours, WindSpeed}

var metricNames = map[Metric]string{
	MaxTemp:   "Max Temp",
	MinTemp:   "Min Temp",
	Rainfall:  "Rainfall",
	RainSum:   "Sum of Daily Rain",
	RainHours: "Hours with Rain",
	WindSpeed: "Wind Speed",
}

func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// MarshalText encodes the metric as its display name
func (m Metric) MarshalText() ([]byte, error) {
	if _, ok := metricNames[m]; !ok {
		return nil, fmt.Errorf("unknown metric %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a display name produced by MarshalText
func (m *Metric) UnmarshalText(b []byte) error {
	metric, err := ParseMetric(string(b))
	if err != nil {
		return err
	}
	*m = metric
	return nil
}

// ParseMetric looks a metric up by its display name
func ParseMetric(name string) (Metric, error) {
	for _, m := range Metrics {
		if metricNames[m] == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}
