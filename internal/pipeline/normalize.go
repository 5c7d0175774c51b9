package pipeline

import (
	"monthweather/internal/models"
	"monthweather/internal/weathercode"
)

// Normalize turns an extracted series into one observation per day, in
// series order, stamped with kind. Columns shorter than the date column
// contribute missing values.
func Normalize(s Series, kind models.SourceKind) []models.DailyObservation {
	obs := make([]models.DailyObservation, 0, s.Len())
	for i, date := range s.Dates {
		code := s.code(i)
		o := models.DailyObservation{
			Date:               date,
			WeatherCode:        code,
			Description:        weathercode.Describe(code),
			MaxTemp:            s.value(models.MaxTemp, i),
			MinTemp:            s.value(models.MinTemp, i),
			PrecipitationSum:   s.value(models.Rainfall, i),
			RainSum:            s.value(models.RainSum, i),
			PrecipitationHours: s.value(models.RainHours, i),
			WindSpeedMax:       s.value(models.WindSpeed, i),
			Source:             kind,
		}
		if day, ok := models.ParseDay(date); ok {
			o.Day = day
		}
		obs = append(obs, o)
	}
	return obs
}
