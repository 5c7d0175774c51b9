// Package pipeline turns Open-Meteo daily responses into the combined and
// long-form tables the charts are drawn from.
//
// Every stage is a pure function of its input. Only Extract can fail.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"monthweather/internal/metrics"
	"monthweather/internal/models"
)

// Run is the output of one pass over a historical and a forecast response
type Run struct {
	ID         uuid.UUID                 `json:"id"`
	BuiltAt    time.Time                 `json:"built_at"`
	Historical []models.DailyObservation `json:"-"`
	Forecast   []models.DailyObservation `json:"-"`
	Combined   models.CombinedSeries     `json:"combined"`
	LongForm   []models.LongFormRow      `json:"long_form"`
}

// Build runs extraction, normalization, merge and reshaping over the two
// responses. Either response may be nil or lack a daily section.
func Build(historical, forecast *models.Forecast, fields []FieldMapping) (*Run, error) {
	hist, err := normalizeResponse(historical, models.KindHistorical, fields)
	if err != nil {
		return nil, fmt.Errorf("historical response: %w", err)
	}

	fc, err := normalizeResponse(forecast, models.KindForecast, fields)
	if err != nil {
		return nil, fmt.Errorf("forecast response: %w", err)
	}

	return finish(uuid.New(), hist, fc), nil
}

// FromCombined rebuilds a run from an already combined series, such as one
// loaded back from storage.
func FromCombined(id uuid.UUID, combined models.CombinedSeries) *Run {
	var hist, fc []models.DailyObservation
	for _, o := range combined {
		if o.Source == models.KindForecast {
			fc = append(fc, o)
		} else {
			hist = append(hist, o)
		}
	}
	return finish(id, hist, fc)
}

func normalizeResponse(f *models.Forecast, kind models.SourceKind, fields []FieldMapping) ([]models.DailyObservation, error) {
	series, err := Extract(f, fields)
	if err != nil {
		metrics.MalformedSeries.WithLabelValues(string(kind)).Inc()
		return nil, err
	}

	obs := Normalize(series, kind)
	metrics.ObservationsBuilt.WithLabelValues(string(kind)).Add(float64(len(obs)))
	return obs, nil
}

func finish(id uuid.UUID, hist, fc []models.DailyObservation) *Run {
	combined := Merge(hist, fc)
	rows := ToLongForm(combined)

	metrics.LongFormRowsBuilt.Add(float64(len(rows)))
	for _, r := range rows {
		if !r.Value.Valid {
			metrics.MissingValues.WithLabelValues(r.Metric.String()).Inc()
		}
	}

	return &Run{
		ID:         id,
		BuiltAt:    time.Now().UTC(),
		Historical: hist,
		Forecast:   fc,
		Combined:   combined,
		LongForm:   rows,
	}
}
