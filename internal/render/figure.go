// Package render turns long-form rows into an animated bar chart document
// that a browser charting library (plotly.js) can draw directly.
package render

import (
	"errors"
	"fmt"
	"strconv"

	"monthweather/internal/models"
	"monthweather/internal/summary"
)

// ErrNoData is returned when there is no present value to plot
var ErrNoData = errors.New("no data to plot")

// BackendError is a failure of the output backend, as opposed to a problem
// with the data being plotted
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

var sourceColors = map[models.SourceKind]string{
	models.KindHistorical: "#636efa",
	models.KindForecast:   "#ef553b",
}

// Marker styles a trace
type Marker struct {
	Color string `json:"color"`
}

// Trace is one series. In the bar chart it holds every metric of one source
// for one day; in the line chart one metric across the month.
type Trace struct {
	Type      string           `json:"type"`
	Name      string           `json:"name"`
	Mode      string           `json:"mode,omitempty"`
	X         []string         `json:"x"`
	Y         []models.Reading `json:"y"`
	HoverText []string         `json:"hovertext"`
	Marker    Marker           `json:"marker"`
}

// Frame is one animation step. Name is the canonical date, Label the day of
// month shown on the slider.
type Frame struct {
	Name  string  `json:"name"`
	Label string  `json:"-"`
	Data  []Trace `json:"data"`
}

type Axis struct {
	Title string    `json:"title"`
	Range []float64 `json:"range,omitempty"`
}

type Layout struct {
	Title    string `json:"title"`
	Template string `json:"template"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	BarMode  string `json:"barmode,omitempty"`
	XAxis    Axis   `json:"xaxis"`
	YAxis    Axis   `json:"yaxis"`
	Sliders  []any  `json:"sliders,omitempty"`
}

// Figure is a complete chart document. For the bar chart Data is the first
// frame's traces; the line chart has no frames.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
	Frames []Frame `json:"frames,omitempty"`
}

// Title formats the chart title for place over period
func Title(place string, period models.Period) string {
	return fmt.Sprintf("%s Weather: %s - %s", place, period.StartDate(), period.EndDate())
}

// LineTitle formats the title of the historical line chart for place
func LineTitle(place string) string {
	return place + " (Historical Weather of this month)"
}

// BuildFigure groups rows into one frame per date, in first-seen order. Every
// frame carries one trace per source kind found anywhere in rows, at the same
// index, so plotly can animate between frames; a kind with no rows that day
// gets an empty trace. Bars are metrics in legend order and hover text is the
// day's weather description.
func BuildFigure(title string, rows []models.LongFormRow) (*Figure, error) {
	yRange, ok := summary.YRange(rows)
	if !ok {
		return nil, ErrNoData
	}

	kinds := sourceKinds(rows)
	slot := make(map[models.SourceKind]int, len(kinds))
	for i, k := range kinds {
		slot[k] = i
	}

	var frames []Frame
	frameIdx := make(map[string]int)

	for _, r := range rows {
		fi, seen := frameIdx[r.Date]
		if !seen {
			fi = len(frames)
			frameIdx[r.Date] = fi
			frames = append(frames, Frame{Name: r.Date, Label: dayLabel(r), Data: emptyTraces(kinds)})
		}

		tr := &frames[fi].Data[slot[r.Source]]
		tr.X = append(tr.X, r.Metric.String())
		tr.Y = append(tr.Y, r.Value)
		tr.HoverText = append(tr.HoverText, r.Description)
	}

	return &Figure{
		Data: frames[0].Data,
		Layout: Layout{
			Title:    title,
			Template: "plotly_dark",
			Height:   600,
			Width:    1050,
			BarMode:  "group",
			XAxis:    Axis{Title: "Metric"},
			YAxis:    Axis{Title: "Value", Range: yRange[:]},
			Sliders:  []any{slider(frames)},
		},
		Frames: frames,
	}, nil
}

// sourceKinds lists the kinds present in rows, historical before forecast,
// then any others in first-seen order
func sourceKinds(rows []models.LongFormRow) []models.SourceKind {
	present := make(map[models.SourceKind]bool)
	var others []models.SourceKind
	for _, r := range rows {
		if present[r.Source] {
			continue
		}
		present[r.Source] = true
		if r.Source != models.KindHistorical && r.Source != models.KindForecast {
			others = append(others, r.Source)
		}
	}

	var kinds []models.SourceKind
	for _, k := range []models.SourceKind{models.KindHistorical, models.KindForecast} {
		if present[k] {
			kinds = append(kinds, k)
		}
	}
	return append(kinds, others...)
}

func emptyTraces(kinds []models.SourceKind) []Trace {
	traces := make([]Trace, len(kinds))
	for i, k := range kinds {
		traces[i] = Trace{
			Type:      "bar",
			Name:      string(k),
			X:         []string{},
			Y:         []models.Reading{},
			HoverText: []string{},
			Marker:    Marker{Color: sourceColors[k]},
		}
	}
	return traces
}

var metricColors = []string{"#636efa", "#ef553b", "#00cc96", "#ab63fa", "#ffa15a", "#19d3f3"}

// BuildLineFigure draws one line per metric across the dates in rows, in
// first-seen date order. A date with no value for a metric is left as a gap.
// Hover text is the day's weather description.
func BuildLineFigure(title string, rows []models.LongFormRow) (*Figure, error) {
	var dates []string
	dateIdx := make(map[string]int)
	desc := make(map[string]string)
	values := make(map[models.Metric]map[string]models.Reading)
	present := false

	for _, r := range rows {
		if _, seen := dateIdx[r.Date]; !seen {
			dateIdx[r.Date] = len(dates)
			dates = append(dates, r.Date)
		}
		if desc[r.Date] == "" {
			desc[r.Date] = r.Description
		}
		if values[r.Metric] == nil {
			values[r.Metric] = make(map[string]models.Reading)
		}
		values[r.Metric][r.Date] = r.Value
		if r.Value.Valid {
			present = true
		}
	}
	if !present {
		return nil, ErrNoData
	}

	hover := make([]string, len(dates))
	for i, d := range dates {
		hover[i] = desc[d]
	}

	var traces []Trace
	for i, m := range models.Metrics {
		byDate, ok := values[m]
		if !ok {
			continue
		}
		y := make([]models.Reading, len(dates))
		for j, d := range dates {
			y[j] = byDate[d]
		}
		traces = append(traces, Trace{
			Type:      "scatter",
			Mode:      "lines+markers",
			Name:      m.String(),
			X:         dates,
			Y:         y,
			HoverText: hover,
			Marker:    Marker{Color: metricColors[i%len(metricColors)]},
		})
	}

	return &Figure{
		Data: traces,
		Layout: Layout{
			Title:    title,
			Template: "plotly_dark",
			Height:   600,
			Width:    1050,
			XAxis:    Axis{Title: "Date"},
			YAxis:    Axis{Title: "Value"},
		},
	}, nil
}

func dayLabel(r models.LongFormRow) string {
	if r.Day.IsZero() {
		return r.Date
	}
	return strconv.Itoa(r.Day.Day())
}

func slider(frames []Frame) map[string]any {
	steps := make([]map[string]any, 0, len(frames))
	for _, f := range frames {
		steps = append(steps, map[string]any{
			"label":  f.Label,
			"method": "animate",
			"args": []any{
				[]string{f.Name},
				map[string]any{
					"mode":       "immediate",
					"frame":      map[string]any{"duration": 500, "redraw": true},
					"transition": map[string]any{"duration": 300},
				},
			},
		})
	}
	return map[string]any{
		"active":       0,
		"currentvalue": map[string]any{"prefix": "Day="},
		"steps":        steps,
	}
}
