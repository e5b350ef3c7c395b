package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks the number of outbound API calls to Personio.
	PersonioRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personio_api_requests_total",
			Help: "Total number of Personio API requests made (by endpoint, method and status).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Measures duration of API requests to Personio.
	PersonioRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "personio_api_request_duration_seconds",
			Help:    "Duration of Personio API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms up to ~16s
		},
		[]string{"endpoint", "method"},
	)

	// Counts retried attempts by cause (rate_limited, server_error, network).
	PersonioRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personio_api_retries_total",
			Help: "Number of retried Personio API attempts by cause.",
		},
		[]string{"cause"},
	)

	RecordsTransformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "personio_records_transformed_total",
			Help: "Number of employee records successfully flattened.",
		},
	)

	RecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "personio_records_skipped_total",
			Help: "Number of employee records dropped due to transformation errors.",
		},
	)

	DocumentsDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "personio_documents_downloaded_total",
			Help: "Number of employee documents downloaded.",
		},
	)

	DocumentsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "personio_documents_skipped_total",
			Help: "Number of employee documents skipped (unchanged or failed).",
		},
	)

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personio_sync_runs_total",
			Help: "Number of sync runs by outcome.",
		},
		[]string{"status"},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "personio_sync_duration_seconds",
			Help:    "Duration of full sync runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms up to ~13min
		},
	)

	NATSPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Number of NATS publish failures",
		},
		[]string{"subject"},
	)
)

// IncRequest records one completed Personio API call.
func IncRequest(endpoint, method, status string) {
	PersonioRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// ObserveRequestDuration records the time taken by one Personio API call.
func ObserveRequestDuration(endpoint, method string, start time.Time) {
	PersonioRequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
}

// IncRetry records a retried attempt by cause.
func IncRetry(cause string) {
	PersonioRetriesTotal.WithLabelValues(cause).Inc()
}
