package database

import (
	"database/sql"

	"monthweather/internal/models"
)

func nullFloat(r models.Reading) sql.NullFloat64 {
	return sql.NullFloat64{Float64: r.Value, Valid: r.Valid}
}

func readingFrom(n sql.NullFloat64) models.Reading {
	if !n.Valid {
		return models.Missing
	}
	return models.Float(n.Float64)
}

func nullCode(c models.WeatherCode) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(c.Code), Valid: c.Valid}
}

func codeFrom(n sql.NullInt64) models.WeatherCode {
	if !n.Valid {
		return models.WeatherCode{}
	}
	return models.Code(int(n.Int64))
}
