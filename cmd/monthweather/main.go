// Command monthweather fetches this month's daily weather for one place from
// Open-Meteo, combines it with the coming days' forecast and reports on it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"monthweather/internal/config"
)

var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "monthweather",
	Short: "Month-to-date weather history and forecast from Open-Meteo",
	Long: `monthweather pulls the archived daily weather from the first of the
month to today, plus the daily forecast for the days after, and merges the
two into one table, a summary and an animated chart.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "./config.yaml", "config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(serveCmd)
}
