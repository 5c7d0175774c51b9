package pipeline

import (
	"monthweather/internal/models"
)

// ToLongForm pivots each observation into one row per metric, in
// models.Metrics order. Missing, NaN and infinite values become the explicit
// missing marker.
func ToLongForm(s models.CombinedSeries) []models.LongFormRow {
	rows := make([]models.LongFormRow, 0, len(s)*len(models.Metrics))
	for _, o := range s {
		for _, m := range models.Metrics {
			rows = append(rows, models.LongFormRow{
				Date:        o.Date,
				Day:         o.Day,
				Source:      o.Source,
				Description: o.Description,
				Metric:      m,
				Value:       coerce(o.Value(m)),
			})
		}
	}
	return rows
}

func coerce(r models.Reading) models.Reading {
	if !r.Valid {
		return models.Missing
	}
	return models.Float(r.Value)
}

// RowsFor keeps the rows of one source kind, in order
func RowsFor(rows []models.LongFormRow, kind models.SourceKind) []models.LongFormRow {
	out := make([]models.LongFormRow, 0, len(rows))
	for _, r := range rows {
		if r.Source == kind {
			out = append(out, r)
		}
	}
	return out
}
