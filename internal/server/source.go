package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"monthweather/internal/api"
	"monthweather/internal/config"
	"monthweather/internal/database"
	"monthweather/internal/models"
	"monthweather/internal/pipeline"
)

// Snapshot is a built run together with what it describes
type Snapshot struct {
	Location string        `json:"location"`
	Period   models.Period `json:"period"`
	Run      *pipeline.Run `json:"run"`
}

// Source produces the current month's run
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// LiveSource fetches both responses from Open-Meteo on every Load
type LiveSource struct {
	Client *api.OpenMeteoClient
	Config *config.Config
	Now    func() time.Time
}

func (s *LiveSource) Load(ctx context.Context) (*Snapshot, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	period := s.Config.Period(now())

	resp, err := api.FetchMonth(ctx, s.Client, s.Config.Location, period, s.Config.Weather.DailyFields)
	if err != nil {
		return nil, err
	}

	run, err := pipeline.Build(resp.Historical, resp.Forecast, pipeline.FieldsFor(s.Config.Weather.DailyFields))
	if err != nil {
		return nil, err
	}

	return &Snapshot{Location: s.Config.Location.Name, Period: period, Run: run}, nil
}

// ObservationStore is the read side of the MySQL store
type ObservationStore interface {
	GetLocationsWithData(ctx context.Context) (map[string]bool, error)
	LatestRunID(ctx context.Context, location string) (uuid.UUID, error)
	GetObservations(ctx context.Context, location, from, to string) (models.CombinedSeries, error)
}

// StoredSource serves what the store command last wrote to MySQL
type StoredSource struct {
	DB     ObservationStore
	Config *config.Config
	Now    func() time.Time
}

func (s *StoredSource) Load(ctx context.Context) (*Snapshot, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	period := s.Config.Period(now())
	location := s.Config.Location.Name

	locations, err := s.DB.GetLocationsWithData(ctx)
	if err != nil {
		return nil, err
	}
	if !locations[location] {
		return nil, fmt.Errorf("%s: %w", location, database.ErrNoObservations)
	}

	id, err := s.DB.LatestRunID(ctx, location)
	if err != nil {
		return nil, err
	}

	combined, err := s.DB.GetObservations(ctx, location, period.StartDate(), period.ForecastEnd())
	if err != nil {
		return nil, fmt.Errorf("failed to load stored month: %w", err)
	}

	return &Snapshot{Location: location, Period: period, Run: pipeline.FromCombined(id, combined)}, nil
}
