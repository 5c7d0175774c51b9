package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of established connections both in use and idle",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle connections",
		},
	)
)

// Open-Meteo metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openmeteo_requests_total",
			Help: "Total number of Open-Meteo requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openmeteo_request_duration_seconds",
			Help:    "Duration of Open-Meteo requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// Pipeline metrics
var (
	// ObservationsBuilt counts daily observations produced per source kind
	ObservationsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monthweather_observations_built_total",
			Help: "Daily observations produced by the normalizer",
		},
		[]string{"source"},
	)

	LongFormRowsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monthweather_long_form_rows_total",
			Help: "Long-form rows produced by the reshaper",
		},
	)

	// MissingValues counts long-form rows carrying the missing marker
	MissingValues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monthweather_missing_values_total",
			Help: "Long-form rows whose metric value is missing",
		},
		[]string{"metric"},
	)

	MalformedSeries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monthweather_malformed_series_total",
			Help: "Responses rejected because their daily arrays disagree in length",
		},
		[]string{"source"},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monthweather_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppStartTime.SetToCurrentTime()
}

// RecordDBQuery records a database query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	DBQueriesTotal.WithLabelValues(queryType, table, status(err)).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(open, inUse, idle int) {
	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
}

// RecordAPIRequest records one Open-Meteo call
func RecordAPIRequest(endpoint string, duration time.Duration, err error) {
	APIRequestsTotal.WithLabelValues(endpoint, status(err)).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
