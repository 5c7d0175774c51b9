package main

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"monthweather/internal/api"
	"monthweather/internal/config"
	"monthweather/internal/stream"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch the month and publish it to the Redis stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		redisCfg := config.GetRedisConfig()
		redisClient := stream.NewClient(redisCfg)
		defer redisClient.Close()

		period := cfg.Period(time.Now())
		client := api.NewOpenMeteoClient().WithTimezone(cfg.Weather.Timezone)

		resp, err := api.FetchMonth(ctx, client, cfg.Location, period, cfg.Weather.DailyFields)
		if err != nil {
			return fmt.Errorf("failed to fetch weather for %s: %w", cfg.Location.Name, err)
		}

		batch := stream.Batch{
			RunID:      uuid.New(),
			Location:   cfg.Location,
			Period:     period,
			Fields:     cfg.Weather.DailyFields,
			Historical: resp.Historical,
			Forecast:   resp.Forecast,
		}

		if _, err := stream.NewPublisher(redisClient, redisCfg.Stream).Publish(ctx, batch); err != nil {
			return err
		}

		log.Printf("Data collection completed. Exiting")
		return nil
	},
}
