package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"monthweather/internal/models"
)

// ErrMalformedSeries is returned when the daily arrays of a response do not
// all describe the same number of days.
var ErrMalformedSeries = errors.New("malformed daily series")

// FieldMapping binds an Open-Meteo daily field to the metric it feeds
type FieldMapping struct {
	Field  string
	Metric models.Metric
}

// DefaultFields maps every plotted metric, in legend order
var DefaultFields = []FieldMapping{
	{Field: models.FieldTemperature2mMax, Metric: models.MaxTemp},
	{Field: models.FieldTemperature2mMin, Metric: models.MinTemp},
	{Field: models.FieldPrecipitationSum, Metric: models.Rainfall},
	{Field: models.FieldRainSum, Metric: models.RainSum},
	{Field: models.FieldPrecipitationHours, Metric: models.RainHours},
	{Field: models.FieldWindSpeed10mMax, Metric: models.WindSpeed},
}

// FieldsFor keeps the DefaultFields entries whose field is listed in names.
// Names that are not numeric daily fields are ignored.
func FieldsFor(names []string) []FieldMapping {
	out := make([]FieldMapping, 0, len(DefaultFields))
	for _, fm := range DefaultFields {
		if slices.Contains(names, fm.Field) {
			out = append(out, fm)
		}
	}
	return out
}

// Series is the column view of one response's daily section
type Series struct {
	Dates  []string
	Codes  []models.WeatherCode
	Values map[models.Metric][]models.Reading
}

// Len is the number of days in the series
func (s Series) Len() int {
	return len(s.Dates)
}

func (s Series) code(i int) models.WeatherCode {
	if i < len(s.Codes) {
		return s.Codes[i]
	}
	return models.WeatherCode{}
}

func (s Series) value(m models.Metric, i int) models.Reading {
	col := s.Values[m]
	if i < len(col) {
		return col[i]
	}
	return models.Missing
}

type column struct {
	name string
	n    int
}

// Extract pulls the time and weather_code columns plus every mapped numeric
// field out of f. A response without a daily section, or a field the
// response omits, yields empty columns. Columns that are present must agree
// in length, otherwise ErrMalformedSeries is returned.
func Extract(f *models.Forecast, fields []FieldMapping) (Series, error) {
	s := Series{
		Dates:  []string{},
		Codes:  []models.WeatherCode{},
		Values: make(map[models.Metric][]models.Reading, len(fields)),
	}
	for _, fm := range fields {
		s.Values[fm.Metric] = []models.Reading{}
	}

	if f == nil || f.Daily == nil {
		return s, nil
	}
	d := f.Daily

	present := []column{
		{models.FieldTime, len(d.Time)},
		{models.FieldWeatherCode, len(d.WeatherCode)},
	}
	if len(d.Time) > 0 {
		s.Dates = slices.Clone(d.Time)
	}
	if len(d.WeatherCode) > 0 {
		s.Codes = slices.Clone(d.WeatherCode)
	}

	for _, fm := range fields {
		values, ok := d.Column(fm.Field)
		if !ok || len(values) == 0 {
			continue
		}
		s.Values[fm.Metric] = slices.Clone(values)
		present = append(present, column{fm.Field, len(values)})
	}

	if err := checkLengths(present); err != nil {
		return Series{}, err
	}
	return s, nil
}

func checkLengths(cols []column) error {
	var ref *column
	for i := range cols {
		c := &cols[i]
		if c.n == 0 {
			continue
		}
		if ref == nil {
			ref = c
			continue
		}
		if c.n != ref.n {
			return fmt.Errorf("%w: %s has %d values but %s has %d",
				ErrMalformedSeries, c.name, c.n, ref.name, ref.n)
		}
	}
	return nil
}
