package pipeline

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"monthweather/internal/models"
	"monthweather/internal/weathercode"
)

func decodeForecast(t *testing.T, body string) *models.Forecast {
	t.Helper()
	var f models.Forecast
	if err := json.Unmarshal([]byte(body), &f); err != nil {
		t.Fatalf("Failed to decode fixture: %v", err)
	}
	return &f
}

const historicalBody = `{
  "latitude": 13.0845, "longitude": 80.2705, "timezone": "Asia/Kolkata",
  "daily": {
    "time": ["2024-06-01", "2024-06-02", "2024-06-03"],
    "weather_code": [0, 61, 95],
    "temperature_2m_max": [34.0, 33.2, null],
    "temperature_2m_min": [26.0, 25.1, 24.9],
    "precipitation_sum": [0.0, 4.2, 18.5],
    "rain_sum": [0.0, 4.2, 18.5],
    "precipitation_hours": [0, 3, 7],
    "wind_speed_10m_max": [14.3, 18.0, 22.6]
  }
}`

const forecastBody = `{
  "daily": {
    "time": ["2024-06-03", "2024-06-04"],
    "weather_code": [61, 200],
    "temperature_2m_max": [33.0, 32.5],
    "temperature_2m_min": [25.5, 25.0],
    "precipitation_sum": [2.1, "n/a"],
    "rain_sum": [2.1, 0.4],
    "precipitation_hours": [2, 1],
    "wind_speed_10m_max": [16.0, 15.2]
  }
}`

func TestExtract_WellFormed(t *testing.T) {
	s, err := Extract(decodeForecast(t, historicalBody), DefaultFields)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if s.Len() != 3 {
		t.Fatalf("Expected 3 days, got %d", s.Len())
	}
	if len(s.Codes) != 3 {
		t.Errorf("Expected 3 weather codes, got %d", len(s.Codes))
	}
	for _, fm := range DefaultFields {
		if got := len(s.Values[fm.Metric]); got != 3 {
			t.Errorf("%s: expected 3 values, got %d", fm.Field, got)
		}
	}

	// row i of every column describes the same day
	if s.Dates[1] != "2024-06-02" || s.Codes[1] != models.Code(61) || s.Values[models.Rainfall][1] != models.Float(4.2) {
		t.Errorf("row 1 misaligned: %s %+v %+v", s.Dates[1], s.Codes[1], s.Values[models.Rainfall][1])
	}
}

func TestExtract_NoDailySection(t *testing.T) {
	tests := []struct {
		name string
		f    *models.Forecast
	}{
		{"nil response", nil},
		{"no daily key", decodeForecast(t, `{"latitude": 13.08}`)},
		{"empty daily", decodeForecast(t, `{"daily": {}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Extract(tt.f, DefaultFields)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if s.Len() != 0 || len(s.Codes) != 0 {
				t.Errorf("Expected empty series, got %d dates and %d codes", s.Len(), len(s.Codes))
			}
			for _, fm := range DefaultFields {
				values, ok := s.Values[fm.Metric]
				if !ok || values == nil || len(values) != 0 {
					t.Errorf("%s: expected empty non-nil column, got %v (present=%v)", fm.Field, values, ok)
				}
			}
		})
	}
}

func TestExtract_MissingField(t *testing.T) {
	f := decodeForecast(t, `{"daily": {"time": ["2024-06-01", "2024-06-02"], "temperature_2m_max": [30, 31]}}`)

	s, err := Extract(f, DefaultFields)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(s.Values[models.RainSum]) != 0 {
		t.Errorf("Expected empty rain_sum column, got %v", s.Values[models.RainSum])
	}
	if len(s.Values[models.MaxTemp]) != 2 {
		t.Errorf("Expected 2 max temps, got %d", len(s.Values[models.MaxTemp]))
	}
}

func TestExtract_MismatchedLengths(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "metric shorter than time",
			body: `{"daily": {"time": ["a","b","c","d","e"], "temperature_2m_max": [1,2,3]}}`,
		},
		{
			name: "two metrics disagree",
			body: `{"daily": {"temperature_2m_max": [1,2,3,4,5], "rain_sum": [1,2,3]}}`,
		},
		{
			name: "weather codes longer than time",
			body: `{"daily": {"time": ["a","b","c"], "weather_code": [0,1,2,3,61]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(decodeForecast(t, tt.body), DefaultFields)
			if !errors.Is(err, ErrMalformedSeries) {
				t.Errorf("Extract() error = %v, want ErrMalformedSeries", err)
			}
		})
	}
}

func TestExtract_EmptyColumnsDoNotConflict(t *testing.T) {
	f := decodeForecast(t, `{"daily": {"time": ["2024-06-01"], "weather_code": [], "rain_sum": [1.5]}}`)

	if _, err := Extract(f, DefaultFields); err != nil {
		t.Errorf("Extract() error = %v, want nil for empty column", err)
	}
}

func TestExtract_DoesNotAliasResponse(t *testing.T) {
	f := decodeForecast(t, historicalBody)
	s, err := Extract(f, DefaultFields)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	f.Daily.Time[0] = "changed"
	f.Daily.Temperature2mMin[0] = models.Float(-40)

	if s.Dates[0] != "2024-06-01" || s.Values[models.MinTemp][0] != models.Float(26) {
		t.Error("Extract() result changed after mutating the response")
	}
}

func TestNormalize(t *testing.T) {
	s, err := Extract(decodeForecast(t, historicalBody), DefaultFields)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	obs := Normalize(s, models.KindHistorical)
	if len(obs) != 3 {
		t.Fatalf("Expected 3 observations, got %d", len(obs))
	}

	first := obs[0]
	if first.Date != "2024-06-01" || first.Description != "Clear sky" || first.Source != models.KindHistorical {
		t.Errorf("Unexpected first observation: %+v", first)
	}
	if first.MaxTemp != models.Float(34) || first.WindSpeedMax != models.Float(14.3) {
		t.Errorf("Unexpected first observation values: %+v", first)
	}
	if first.Day.IsZero() {
		t.Error("Expected parsed day on first observation")
	}

	if obs[2].MaxTemp.Valid {
		t.Error("Expected null max temp on day 3 to be missing")
	}
	if obs[2].Description != "Thunderstorm: Slight or moderate" {
		t.Errorf("Day 3 description = %q", obs[2].Description)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	s, err := Extract(decodeForecast(t, forecastBody), DefaultFields)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	a := Normalize(s, models.KindForecast)
	b := Normalize(s, models.KindForecast)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Normalize() not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestNormalize_EmptyDates(t *testing.T) {
	s := Series{
		Dates:  []string{},
		Values: map[models.Metric][]models.Reading{},
	}
	if obs := Normalize(s, models.KindHistorical); len(obs) != 0 {
		t.Errorf("Expected no observations, got %d", len(obs))
	}

	// dates absent but other columns present still means no data
	f := decodeForecast(t, `{"daily": {"temperature_2m_max": [1, 2]}}`)
	s, err := Extract(f, DefaultFields)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if obs := Normalize(s, models.KindForecast); len(obs) != 0 {
		t.Errorf("Expected no observations without dates, got %d", len(obs))
	}
}

func TestNormalize_MissingColumnsAreMissing(t *testing.T) {
	f := decodeForecast(t, `{"daily": {"time": ["2024-06-01"]}}`)
	s, err := Extract(f, DefaultFields)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	obs := Normalize(s, models.KindHistorical)
	if len(obs) != 1 {
		t.Fatalf("Expected 1 observation, got %d", len(obs))
	}
	for _, m := range models.Metrics {
		if obs[0].Value(m).Valid {
			t.Errorf("%s should be missing", m)
		}
	}
	if obs[0].Description != "null" {
		t.Errorf("Description = %q, want null marker", obs[0].Description)
	}
}

func observation(date string, code int, maxTemp, minTemp float64, kind models.SourceKind) models.DailyObservation {
	day, _ := models.ParseDay(date)
	return models.DailyObservation{
		Date:               date,
		Day:                day,
		WeatherCode:        models.Code(code),
		Description:        weathercode.Lookup(code),
		MaxTemp:            models.Float(maxTemp),
		MinTemp:            models.Float(minTemp),
		PrecipitationSum:   models.Float(0),
		RainSum:            models.Float(0),
		PrecipitationHours: models.Float(0),
		WindSpeedMax:       models.Float(10),
		Source:             kind,
	}
}

func TestMerge(t *testing.T) {
	h := []models.DailyObservation{
		observation("2024-06-01", 0, 34, 26, models.KindHistorical),
		observation("2024-06-02", 1, 33, 26, models.KindHistorical),
	}
	f := []models.DailyObservation{
		observation("2024-06-02", 61, 32, 25, models.KindForecast),
		observation("2024-06-03", 63, 31, 25, models.KindForecast),
		observation("2024-06-04", 3, 31, 24, models.KindForecast),
	}

	combined := Merge(h, f)
	if len(combined) != len(h)+len(f) {
		t.Fatalf("Merge() length = %d, want %d", len(combined), len(h)+len(f))
	}
	for i := range h {
		if !reflect.DeepEqual(combined[i], h[i]) {
			t.Errorf("combined[%d] = %+v, want %+v", i, combined[i], h[i])
		}
	}
	for i := range f {
		if !reflect.DeepEqual(combined[len(h)+i], f[i]) {
			t.Errorf("combined[%d] = %+v, want %+v", len(h)+i, combined[len(h)+i], f[i])
		}
	}
}

func TestMerge_EmptySides(t *testing.T) {
	f := []models.DailyObservation{observation("2024-06-05", 0, 30, 24, models.KindForecast)}

	if got := Merge(nil, f); len(got) != 1 || got[0].Source != models.KindForecast {
		t.Errorf("Merge(nil, f) = %+v", got)
	}
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("Merge(nil, nil) length = %d, want 0", len(got))
	}
}

func TestMerge_UnifiesDates(t *testing.T) {
	h := []models.DailyObservation{
		{Date: "2024-06-01T00:00", Source: models.KindHistorical},
		{Date: "not a date", Source: models.KindHistorical},
	}

	combined := Merge(h, nil)
	if combined[0].Date != "2024-06-01" || combined[0].Day.IsZero() {
		t.Errorf("Expected canonical date, got %q (day %v)", combined[0].Date, combined[0].Day)
	}
	if combined[1].Date != "not a date" || !combined[1].Day.IsZero() {
		t.Errorf("Expected unparseable date kept as is, got %q (day %v)", combined[1].Date, combined[1].Day)
	}
	if h[0].Date != "2024-06-01T00:00" {
		t.Error("Merge() modified its input")
	}
}

func TestToLongForm_Order(t *testing.T) {
	combined := models.CombinedSeries{
		observation("2024-06-01", 0, 34, 26, models.KindHistorical),
		observation("2024-06-02", 2, 33, 25, models.KindHistorical),
		observation("2024-06-03", 61, 32, 25, models.KindForecast),
	}

	rows := ToLongForm(combined)
	if len(rows) != 6*len(combined) {
		t.Fatalf("ToLongForm() produced %d rows, want %d", len(rows), 6*len(combined))
	}

	for i, row := range rows {
		obs := combined[i/6]
		if row.Metric != models.Metrics[i%6] {
			t.Errorf("rows[%d].Metric = %s, want %s", i, row.Metric, models.Metrics[i%6])
		}
		if row.Date != obs.Date || row.Source != obs.Source || row.Description != obs.Description {
			t.Errorf("rows[%d] context = %s/%s/%s, want %s/%s/%s",
				i, row.Date, row.Source, row.Description, obs.Date, obs.Source, obs.Description)
		}
	}

	if rows[0].Value != models.Float(34) || rows[1].Value != models.Float(26) {
		t.Errorf("Unexpected temperature values: %v, %v", rows[0].Value, rows[1].Value)
	}
}

func TestRowsFor(t *testing.T) {
	rows := ToLongForm(models.CombinedSeries{
		observation("2024-06-01", 0, 34, 26, models.KindHistorical),
		observation("2024-06-02", 61, 32, 25, models.KindForecast),
		observation("2024-06-03", 2, 33, 25, models.KindHistorical),
	})

	tests := []struct {
		kind  models.SourceKind
		dates []string
	}{
		{models.KindHistorical, []string{"2024-06-01", "2024-06-03"}},
		{models.KindForecast, []string{"2024-06-02"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := RowsFor(rows, tt.kind)
			if len(got) != 6*len(tt.dates) {
				t.Fatalf("RowsFor() returned %d rows, want %d", len(got), 6*len(tt.dates))
			}
			for i, r := range got {
				if r.Source != tt.kind || r.Date != tt.dates[i/6] {
					t.Errorf("rows[%d] = %s/%s", i, r.Source, r.Date)
				}
			}
		})
	}
}

func TestToLongForm_MissingMarker(t *testing.T) {
	obs := observation("2024-06-01", 0, 34, 26, models.KindHistorical)
	obs.MaxTemp = models.Missing
	obs.RainSum = models.Reading{Value: 0, Valid: true}

	rows := ToLongForm(models.CombinedSeries{obs})

	if rows[0].Metric != models.MaxTemp || rows[0].Value.Valid {
		t.Errorf("MaxTemp row = %+v, want missing", rows[0])
	}
	if rows[3].Metric != models.RainSum || !rows[3].Value.Valid || rows[3].Value.Value != 0 {
		t.Errorf("RainSum row = %+v, want present zero", rows[3])
	}

	data, err := json.Marshal(rows[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["value"] != nil {
		t.Errorf("Missing value encoded as %v, want null", decoded["value"])
	}
	if decoded["metric"] != "Max Temp" {
		t.Errorf("Metric encoded as %v, want Max Temp", decoded["metric"])
	}
}

func TestToLongForm_NonFiniteIsMissing(t *testing.T) {
	obs := observation("2024-06-01", 0, 34, 26, models.KindHistorical)
	obs.WindSpeedMax = models.Reading{Value: math.Inf(1), Valid: true}

	rows := ToLongForm(models.CombinedSeries{obs})
	if rows[5].Value.Valid {
		t.Errorf("WindSpeed row = %+v, want missing for infinity", rows[5])
	}
}

func TestBuild_OverlappingDay(t *testing.T) {
	hist := decodeForecast(t, `{"daily": {
		"time": ["2024-06-01"], "weather_code": [0],
		"temperature_2m_max": [34.0], "temperature_2m_min": [26.0],
		"precipitation_sum": [0], "rain_sum": [0], "precipitation_hours": [0], "wind_speed_10m_max": [12]}}`)
	fc := decodeForecast(t, `{"daily": {
		"time": ["2024-06-01"], "weather_code": [61],
		"temperature_2m_max": [33.0], "temperature_2m_min": [25.5],
		"precipitation_sum": [1.2], "rain_sum": [1.2], "precipitation_hours": [2], "wind_speed_10m_max": [15]}}`)

	run, err := Build(hist, fc, DefaultFields)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(run.Combined) != 2 {
		t.Fatalf("Expected 2 combined rows, got %d", len(run.Combined))
	}
	if run.Combined[0].Date != "2024-06-01" || run.Combined[1].Date != "2024-06-01" {
		t.Errorf("Expected both rows dated 2024-06-01, got %s and %s", run.Combined[0].Date, run.Combined[1].Date)
	}
	if run.Combined[0].Source != models.KindHistorical || run.Combined[0].Description != "Clear sky" {
		t.Errorf("Unexpected historical row: %+v", run.Combined[0])
	}
	if run.Combined[1].Source != models.KindForecast || run.Combined[1].Description != "Rain: Slight" {
		t.Errorf("Unexpected forecast row: %+v", run.Combined[1])
	}

	if len(run.LongForm) != 12 {
		t.Fatalf("Expected 12 long-form rows, got %d", len(run.LongForm))
	}
	counts := map[models.SourceKind]int{}
	for _, r := range run.LongForm {
		counts[r.Source]++
	}
	if counts[models.KindHistorical] != 6 || counts[models.KindForecast] != 6 {
		t.Errorf("Unexpected source counts: %v", counts)
	}
	if run.ID == uuid.Nil {
		t.Error("Expected a run id")
	}
}

func TestBuild_Fixtures(t *testing.T) {
	run, err := Build(decodeForecast(t, historicalBody), decodeForecast(t, forecastBody), DefaultFields)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(run.Historical) != 3 || len(run.Forecast) != 2 || len(run.Combined) != 5 {
		t.Errorf("Unexpected sizes: %d historical, %d forecast, %d combined",
			len(run.Historical), len(run.Forecast), len(run.Combined))
	}
	if len(run.LongForm) != 30 {
		t.Errorf("Expected 30 long-form rows, got %d", len(run.LongForm))
	}

	last := run.Combined[4]
	if last.Description != "200" {
		t.Errorf("Unknown code description = %q, want 200", last.Description)
	}
	if last.PrecipitationSum.Valid {
		t.Error("Non-numeric precipitation should be missing")
	}
}

func TestBuild_MalformedForecast(t *testing.T) {
	bad := decodeForecast(t, `{"daily": {"time": ["a","b","c","d","e"], "rain_sum": [1,2,3]}}`)

	_, err := Build(decodeForecast(t, historicalBody), bad, DefaultFields)
	if !errors.Is(err, ErrMalformedSeries) {
		t.Fatalf("Build() error = %v, want ErrMalformedSeries", err)
	}
}

func TestBuild_NoData(t *testing.T) {
	run, err := Build(nil, decodeForecast(t, `{}`), DefaultFields)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(run.Combined) != 0 || len(run.LongForm) != 0 {
		t.Errorf("Expected empty run, got %d combined, %d long-form", len(run.Combined), len(run.LongForm))
	}
}

func TestFromCombined(t *testing.T) {
	combined := models.CombinedSeries{
		observation("2024-06-01", 0, 34, 26, models.KindHistorical),
		observation("2024-06-02", 61, 32, 25, models.KindForecast),
	}
	id := uuid.New()

	run := FromCombined(id, combined)
	if run.ID != id {
		t.Errorf("FromCombined() id = %s, want %s", run.ID, id)
	}
	if len(run.Historical) != 1 || len(run.Forecast) != 1 {
		t.Errorf("Unexpected split: %d historical, %d forecast", len(run.Historical), len(run.Forecast))
	}
	if !reflect.DeepEqual(run.Combined, combined) {
		t.Errorf("FromCombined() changed the series")
	}
	if len(run.LongForm) != 12 {
		t.Errorf("Expected 12 long-form rows, got %d", len(run.LongForm))
	}
}

func TestFieldsFor(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []models.Metric
	}{
		{"all fields", models.DailyFields, []models.Metric{models.MaxTemp, models.MinTemp, models.Rainfall, models.RainSum, models.RainHours, models.WindSpeed}},
		{"subset keeps legend order", []string{models.FieldWindSpeed10mMax, models.FieldTemperature2mMax}, []models.Metric{models.MaxTemp, models.WindSpeed}},
		{"non-numeric names ignored", []string{models.FieldWeatherCode, "humidity"}, []models.Metric{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FieldsFor(tt.names)
			metrics := make([]models.Metric, 0, len(got))
			for _, fm := range got {
				metrics = append(metrics, fm.Metric)
			}
			if !reflect.DeepEqual(metrics, tt.want) {
				t.Errorf("FieldsFor(%v) = %v, want %v", tt.names, metrics, tt.want)
			}
		})
	}
}
