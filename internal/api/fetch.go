package api

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"monthweather/internal/config"
	"monthweather/internal/models"
)

// MonthResponses holds the raw archive and forecast responses for one period
type MonthResponses struct {
	Historical *models.Forecast
	Forecast   *models.Forecast
}

// FetchMonth requests the archive for period and the forecast that follows
// it concurrently. The first failure cancels the other request.
func FetchMonth(ctx context.Context, c *OpenMeteoClient, loc config.Location, period models.Period, fields []string) (*MonthResponses, error) {
	var out MonthResponses

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hist, err := c.GetHistoricalDaily(ctx, loc.Latitude, loc.Longitude, fields, period.StartDate(), period.EndDate())
		if err != nil {
			return fmt.Errorf("historical %s to %s: %w", period.StartDate(), period.EndDate(), err)
		}
		out.Historical = hist
		return nil
	})

	g.Go(func() error {
		fc, err := c.GetDailyForecast(ctx, loc.Latitude, loc.Longitude, fields, period.ForecastDays)
		if err != nil {
			return fmt.Errorf("forecast to %s: %w", period.ForecastEnd(), err)
		}
		out.Forecast = fc
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("Fetched %s weather from %s to %s, forecast till %s",
		loc.Name, period.StartDate(), period.EndDate(), period.ForecastEnd())
	return &out, nil
}
