// Package summary condenses a combined series into the figures printed next
// to the chart: per-metric statistics, condition counts and notable days.
package summary

import (
	"cmp"
	"slices"

	"monthweather/internal/models"
)

const (
	notableZScore = 1.5
	minSamples    = 3
	// yHeadroom is added above the largest value on the chart axis
	yHeadroom = 10
)

// MetricStats describes one metric over every row of a long-form table
type MetricStats struct {
	Metric  models.Metric `json:"metric"`
	Count   int           `json:"count"`
	Missing int           `json:"missing"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Mean    float64       `json:"mean"`
	StdDev  float64       `json:"std_dev"`
}

// ConditionCount is how many days of one source had a given description
type ConditionCount struct {
	Description string `json:"weather"`
	Count       int    `json:"count"`
}

// NotableDay is a metric value far from that metric's monthly mean
type NotableDay struct {
	Date     string            `json:"date"`
	Source   models.SourceKind `json:"type"`
	Metric   models.Metric     `json:"metric"`
	Value    float64           `json:"value"`
	ZScore   float64           `json:"z_score"`
	Severity string            `json:"severity"`
}

// Report is the full summary of one run
type Report struct {
	Metrics    []MetricStats                          `json:"metrics"`
	Conditions map[models.SourceKind][]ConditionCount `json:"conditions"`
	Notable    []NotableDay                           `json:"notable"`
	YRange     [2]float64                             `json:"y_range"`
	HasData    bool                                   `json:"has_data"`
}

// Summarize builds a Report from a combined series and its long-form rows
func Summarize(combined models.CombinedSeries, rows []models.LongFormRow) Report {
	stats := Stats(rows)
	yRange, ok := YRange(rows)
	return Report{
		Metrics:    stats,
		Conditions: Conditions(combined),
		Notable:    Notable(rows, stats),
		YRange:     yRange,
		HasData:    ok,
	}
}

// Stats computes per-metric statistics in legend order. Missing values are
// counted but never enter the arithmetic.
func Stats(rows []models.LongFormRow) []MetricStats {
	values := make(map[models.Metric][]float64, len(models.Metrics))
	missing := make(map[models.Metric]int, len(models.Metrics))
	for _, r := range rows {
		if !r.Value.Valid {
			missing[r.Metric]++
			continue
		}
		values[r.Metric] = append(values[r.Metric], r.Value.Value)
	}

	out := make([]MetricStats, 0, len(models.Metrics))
	for _, m := range models.Metrics {
		vals := values[m]
		s := MetricStats{Metric: m, Count: len(vals), Missing: missing[m]}
		if len(vals) > 0 {
			s.Min = slices.Min(vals)
			s.Max = slices.Max(vals)
			s.Mean = calculateMean(vals)
			s.StdDev = calculateStdDev(vals, s.Mean)
		}
		out = append(out, s)
	}
	return out
}

// Conditions counts weather descriptions per source kind, most frequent
// first and alphabetical among ties.
func Conditions(combined models.CombinedSeries) map[models.SourceKind][]ConditionCount {
	counts := make(map[models.SourceKind]map[string]int)
	for _, o := range combined {
		if counts[o.Source] == nil {
			counts[o.Source] = make(map[string]int)
		}
		counts[o.Source][o.Description]++
	}

	out := make(map[models.SourceKind][]ConditionCount, len(counts))
	for kind, byDesc := range counts {
		list := make([]ConditionCount, 0, len(byDesc))
		for desc, n := range byDesc {
			list = append(list, ConditionCount{Description: desc, Count: n})
		}
		slices.SortFunc(list, func(a, b ConditionCount) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			return cmp.Compare(a.Description, b.Description)
		})
		out[kind] = list
	}
	return out
}

// Notable flags values more than notableZScore standard deviations from
// their metric's mean. Metrics with fewer than minSamples values or no
// variation are skipped.
func Notable(rows []models.LongFormRow, stats []MetricStats) []NotableDay {
	byMetric := make(map[models.Metric]MetricStats, len(stats))
	for _, s := range stats {
		byMetric[s.Metric] = s
	}

	var out []NotableDay
	for _, r := range rows {
		s, ok := byMetric[r.Metric]
		if !ok || !r.Value.Valid || s.Count < minSamples || s.StdDev == 0 {
			continue
		}
		z := CalculateZScore(r.Value.Value, s.Mean, s.StdDev)
		if !IsNotable(z) {
			continue
		}
		out = append(out, NotableDay{
			Date:     r.Date,
			Source:   r.Source,
			Metric:   r.Metric,
			Value:    r.Value.Value,
			ZScore:   z,
			Severity: severity(z),
		})
	}
	return out
}

// YRange is the chart's value axis, [0, largest present value + 10].
// ok is false when rows hold no present value at all.
func YRange(rows []models.LongFormRow) (yRange [2]float64, ok bool) {
	for _, r := range rows {
		if !r.Value.Valid {
			continue
		}
		if !ok || r.Value.Value > yRange[1] {
			yRange[1] = r.Value.Value
		}
		ok = true
	}
	if !ok {
		return [2]float64{}, false
	}
	yRange[1] += yHeadroom
	return yRange, true
}
