package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytproxy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytproxy_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Extractor Metrics
	ExtractorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytproxy_extractor_requests_total",
			Help: "Total number of extractor calls",
		},
		[]string{"backend", "operation", "status"},
	)

	ExtractorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytproxy_extractor_duration_seconds",
			Help:    "Extractor call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"backend", "operation"},
	)

	// Relay Metrics
	RelaysActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ytproxy_relays_active",
			Help: "Number of byte relays currently streaming",
		},
	)

	RelayBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ytproxy_relay_bytes_total",
			Help: "Total bytes read from origin servers",
		},
	)

	RelaysCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytproxy_relays_completed_total",
			Help: "Total number of finished relays by outcome",
		},
		[]string{"outcome"},
	)
)

const (
	RelayOutcomeCompleted   = "completed"
	RelayOutcomeClientAbort = "client_abort"
	RelayOutcomeUpstream    = "upstream_error"
	RelayOutcomeRejected    = "rejected"
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordExtractorCall records one extractor round trip started at start
func RecordExtractorCall(backend, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ExtractorRequestsTotal.WithLabelValues(backend, operation, status).Inc()
	ExtractorDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

func RelayStarted() {
	RelaysActive.Inc()
}

// RelayFinished closes out a relay that RelayStarted opened
func RelayFinished(outcome string, bytes int64) {
	RelaysActive.Dec()
	RelayBytesTotal.Add(float64(bytes))
	RelaysCompletedTotal.WithLabelValues(outcome).Inc()
}

// RecordRelayRejected counts relays that never reached the streaming stage
func RecordRelayRejected() {
	RelaysCompletedTotal.WithLabelValues(RelayOutcomeRejected).Inc()
}
