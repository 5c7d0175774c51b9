package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"monthweather/internal/config"
	"monthweather/internal/database"
	"monthweather/internal/pipeline"
	"monthweather/internal/stream"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Consume batches from the Redis stream and store them in MySQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		redisCfg := config.GetRedisConfig()
		redisClient := stream.NewClient(redisCfg)
		defer redisClient.Close()

		db, err := database.NewDB(ctx, config.GetDatabaseDSN())
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		consumer, err := stream.NewConsumer(ctx, redisClient, redisCfg)
		if err != nil {
			return err
		}

		log.Println("Store into db started, reading from Redis stream. Press Ctrl+C to stop...")

		for ctx.Err() == nil {
			msgs, err := consumer.Read(ctx)
			if ctx.Err() != nil {
				break
			}
			if err != nil {
				log.Printf("%v", err)
				continue
			}

			for _, m := range msgs {
				if err := storeBatch(ctx, db, m.Batch); err != nil {
					log.Printf("Failed to store batch %s: %v", m.Batch.RunID, err)
					if !errors.Is(err, pipeline.ErrMalformedSeries) {
						continue
					}
				}
				if err := consumer.Ack(ctx, m.ID); err != nil {
					log.Printf("Failed to ack %s: %v", m.ID, err)
				}
			}
		}

		log.Println("Store service stopped")
		return nil
	},
}

// storeBatch rebuilds the combined series of b and upserts it. Malformed
// batches can never succeed and are acknowledged by the caller.
func storeBatch(ctx context.Context, db *database.DB, b stream.Batch) error {
	run, err := pipeline.Build(b.Historical, b.Forecast, pipeline.FieldsFor(b.Fields))
	if err != nil {
		return err
	}
	return db.StoreObservations(ctx, b.RunID, b.Location.Name, run.Combined)
}
