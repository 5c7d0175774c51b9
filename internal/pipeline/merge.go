package pipeline

import (
	"monthweather/internal/models"
)

// Merge appends forecast after historical. Nothing is sorted or
// deduplicated: a day present in both keeps one row per source.
//
// Dates are unified on the way through: rows get the canonical YYYY-MM-DD
// form and a parsed day. Unparseable dates are kept as they are.
func Merge(historical, forecast []models.DailyObservation) models.CombinedSeries {
	combined := make(models.CombinedSeries, 0, len(historical)+len(forecast))
	for _, o := range historical {
		combined = append(combined, unifyDate(o))
	}
	for _, o := range forecast {
		combined = append(combined, unifyDate(o))
	}
	return combined
}

func unifyDate(o models.DailyObservation) models.DailyObservation {
	day := o.Day
	if day.IsZero() {
		parsed, ok := models.ParseDay(o.Date)
		if !ok {
			return o
		}
		day = parsed
	}
	o.Day = day
	o.Date = day.Format(models.DateLayout)
	return o
}
