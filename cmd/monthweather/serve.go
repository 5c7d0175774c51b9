package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"monthweather/internal/api"
	"monthweather/internal/config"
	"monthweather/internal/database"
	"monthweather/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the combined series, summary and chart over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		fromDB, _ := cmd.Flags().GetBool("from-db")
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.HTTP.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var source server.Source
		if fromDB {
			db, err := database.NewDB(ctx, config.GetDatabaseDSN())
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()
			source = &server.StoredSource{DB: db, Config: cfg}
		} else {
			client := api.NewOpenMeteoClient().WithTimezone(cfg.Weather.Timezone)
			source = &server.LiveSource{Client: client, Config: cfg}
		}

		log.Printf("Starting server on %s", addr)
		if err := server.NewServer(source).Start(ctx, addr); err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		log.Println("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("from-db", false, "serve the month last written by the store command instead of fetching live")
	serveCmd.Flags().String("addr", "", "listen address (default from config http.addr)")
}
