package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"monthweather/internal/api"
	"monthweather/internal/models"
	"monthweather/internal/pipeline"
	"monthweather/internal/render"
	"monthweather/internal/summary"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the month, print the combined table and optionally write the chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		view, _ := cmd.Flags().GetString("view")
		if view != "bar" && view != "line" {
			return fmt.Errorf("--view must be bar or line, got %q", view)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		period := cfg.Period(time.Now())
		client := api.NewOpenMeteoClient().WithTimezone(cfg.Weather.Timezone)

		log.Printf("Fetching %s weather data from %s to %s...", cfg.Location.Name, period.StartDate(), period.EndDate())
		log.Printf("And the forecast till %s...", period.ForecastEnd())

		resp, err := api.FetchMonth(ctx, client, cfg.Location, period, cfg.Weather.DailyFields)
		if err != nil {
			return fmt.Errorf("failed to fetch weather: %w", err)
		}

		run, err := pipeline.Build(resp.Historical, resp.Forecast, pipeline.FieldsFor(cfg.Weather.DailyFields))
		if err != nil {
			return fmt.Errorf("failed to build series: %w", err)
		}

		if err := printReport(os.Stdout, run); err != nil {
			return err
		}

		if out == "" {
			return nil
		}
		return writeChart(out, view, cfg.Location.Name, period, run.LongForm)
	},
}

func init() {
	runCmd.Flags().String("out", "", "write the chart to this file (.html for a page, anything else for JSON)")
	runCmd.Flags().String("view", "bar", "chart to write: bar (animated by day) or line (historical days per metric)")
}

// printReport writes the Date/Weather/Type table followed by the condition
// counts of each source
func printReport(w io.Writer, run *pipeline.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Date\tWeather\tType")
	for _, o := range run.Combined {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Date, o.Description, o.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	conditions := summary.Conditions(run.Combined)
	for _, kind := range []models.SourceKind{models.KindHistorical, models.KindForecast} {
		counts := conditions[kind]
		if len(counts) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s conditions:\n", kind)
		for _, c := range counts {
			fmt.Fprintf(w, "  %-40s %d\n", c.Description, c.Count)
		}
	}
	return nil
}

func buildChart(view, place string, period models.Period, rows []models.LongFormRow) (*render.Figure, error) {
	if view == "line" {
		return render.BuildLineFigure(render.LineTitle(place), pipeline.RowsFor(rows, models.KindHistorical))
	}
	return render.BuildFigure(render.Title(place, period), rows)
}

func writeChart(path, view, place string, period models.Period, rows []models.LongFormRow) error {
	fig, err := buildChart(view, place, period, rows)
	if errors.Is(err, render.ErrNoData) {
		log.Printf("Warning: nothing to plot, %s not written", path)
		return nil
	}
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".html") {
		err = render.WriteHTML(f, fig)
	} else {
		err = render.Write(f, fig)
	}
	if err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}

	log.Printf("✓ Wrote %s chart with %d traces and %d frames to %s", view, len(fig.Data), len(fig.Frames), path)
	return f.Close()
}
