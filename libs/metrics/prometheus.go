// Package metrics provides Prometheus metrics for the quoting service
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog metrics
	PartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsquote_part_operations_total",
			Help: "Total number of part catalog operations",
		},
		[]string{"operation", "status"},
	)

	PositionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsquote_positions_rejected_total",
			Help: "Total number of submitted positions that were not stored",
		},
		[]string{"reason"},
	)

	// Persistence metrics
	StoreCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsquote_store_calls_total",
			Help: "Total number of document store calls",
		},
		[]string{"store", "operation", "status"},
	)

	StoreCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partsquote_store_call_duration_seconds",
			Help:    "Duration of document store calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation"},
	)

	StoreFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsquote_store_fallbacks_total",
			Help: "Total number of calls served by the local store after the cloud store failed",
		},
		[]string{"operation"},
	)

	// Image metrics
	ImageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsquote_image_operations_total",
			Help: "Total number of diagram image uploads and deletions",
		},
		[]string{"store", "operation", "status"},
	)

	ImageBytesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsquote_image_bytes_uploaded_total",
			Help: "Total bytes of diagram images uploaded",
		},
		[]string{"store"},
	)

	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partsquote_sessions_active",
			Help: "Number of active quote sessions",
		},
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partsquote_session_duration_seconds",
			Help:    "Lifetime of quote sessions",
			Buckets: []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
		},
	)

	// Quote metrics
	QuotesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsquote_quotes_generated_total",
			Help: "Total number of quotes generated",
		},
		[]string{"format"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsquote_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"route", "status"},
	)
)

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// StatusOf maps an error to a status label
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordStoreCall records a document store call
func RecordStoreCall(store, operation string, err error, duration time.Duration) {
	StoreCallsTotal.WithLabelValues(store, operation, StatusOf(err)).Inc()
	StoreCallDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// RecordFallback records a call the local store served in place of the cloud store
func RecordFallback(operation string) {
	StoreFallbacksTotal.WithLabelValues(operation).Inc()
}

// RecordImage records an image upload or deletion
func RecordImage(store, operation string, bytes int, err error) {
	ImageOperationsTotal.WithLabelValues(store, operation, StatusOf(err)).Inc()
	if err == nil && bytes > 0 {
		ImageBytesUploaded.WithLabelValues(store).Add(float64(bytes))
	}
}

// RecordPartOperation records a catalog mutation and any rejected positions
func RecordPartOperation(operation string, err error, rejectedReasons ...string) {
	PartOperationsTotal.WithLabelValues(operation, StatusOf(err)).Inc()
	for _, reason := range rejectedReasons {
		PositionsRejectedTotal.WithLabelValues(reason).Inc()
	}
}

// RecordSessionStart records the start of a session
func RecordSessionStart() {
	SessionsActive.Inc()
}

// RecordSessionEnd records the end of a session
func RecordSessionEnd(duration time.Duration) {
	SessionsActive.Dec()
	SessionDuration.Observe(duration.Seconds())
}

// RecordQuote records a generated quote
func RecordQuote(format string) {
	QuotesGeneratedTotal.WithLabelValues(format).Inc()
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
