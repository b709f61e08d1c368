package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the rating engine

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vurc_api_calls_total",
			Help: "Total number of RobotEvents API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vurc_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIThrottledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vurc_api_throttled_total",
			Help: "Total number of rate-limit responses that triggered a backoff",
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vurc_api_retries_total",
			Help: "Total number of retries after transient API failures",
		},
		[]string{"endpoint"},
	)

	BackoffSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vurc_api_backoff_seconds_total",
			Help: "Total time spent waiting on rate-limit and retry backoff",
		},
	)

	// Ingestion metrics
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vurc_pages_fetched_total",
			Help: "Total number of result pages fetched",
		},
		[]string{"endpoint"},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vurc_records_skipped_total",
			Help: "Total number of malformed or incomplete records excluded from rating",
		},
		[]string{"reason"},
	)

	TeamsRated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vurc_teams_rated",
			Help: "Number of teams in the last published dataset",
		},
	)

	MatchesRated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vurc_matches_rated",
			Help: "Number of completed matches in the last rating pass",
		},
	)

	// Pipeline metrics
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vurc_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vurc_pipeline_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 900, 1800, 3600},
		},
	)

	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vurc_publish_total",
			Help: "Total number of dataset publish attempts per destination",
		},
		[]string{"destination", "status"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vurc_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vurc_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vurc_last_successful_run_timestamp",
			Help: "Timestamp of last successful pipeline run",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordThrottle records a rate-limit backoff
func RecordThrottle(endpoint string, wait float64) {
	APIThrottledTotal.WithLabelValues(endpoint).Inc()
	BackoffSeconds.Add(wait)
}

// RecordRetry records a transient-failure retry
func RecordRetry(endpoint string, wait float64) {
	APIRetriesTotal.WithLabelValues(endpoint).Inc()
	BackoffSeconds.Add(wait)
}

// RecordPage records a fetched page
func RecordPage(endpoint string) {
	PagesFetched.WithLabelValues(endpoint).Inc()
}

// RecordSkipped records a record excluded from rating
func RecordSkipped(reason string) {
	RecordsSkipped.WithLabelValues(reason).Inc()
}

// RecordRun records a pipeline run
func RecordRun(status string, duration float64) {
	PipelineRunsTotal.WithLabelValues(status).Inc()
	PipelineDuration.Observe(duration)

	if status == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordPublish records a dataset publish attempt
func RecordPublish(destination, status string) {
	PublishTotal.WithLabelValues(destination, status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDatasetStats updates the size of the last published dataset
func UpdateDatasetStats(teams, matches int) {
	TeamsRated.Set(float64(teams))
	MatchesRated.Set(float64(matches))
}
