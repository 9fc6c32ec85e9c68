// Package metrics exposes Prometheus collectors for the analysis service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	analysesTotal              *prometheus.CounterVec
	fetchAttemptsTotal         *prometheus.CounterVec
	fetchBytesTotal            prometheus.Counter
	stageDurationSeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitedTotal           prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		analysesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webanalyst_analyses_total",
				Help: "Total number of analyses run, labeled by outcome.",
			},
			[]string{"status"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webanalyst_fetch_attempts_total",
				Help: "Total number of page fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webanalyst_fetch_bytes_total",
				Help: "Total number of page bytes fetched.",
			},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webanalyst_stage_duration_seconds",
				Help:    "Histogram of pipeline stage latencies, labeled by stage.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)

		rateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webanalyst_rate_limited_total",
				Help: "Total number of analysis requests rejected by the per-client rate limit.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveAnalysis increments the analysis counter for the given outcome.
func ObserveAnalysis(status string) {
	Init()
	analysesTotal.WithLabelValues(status).Inc()
}

// ObserveFetchAttempt records one fetch attempt and the bytes it returned.
// Target hosts come from callers, so they are never used as label values.
func ObserveFetchAttempt(outcome string, bytesFetched int) {
	Init()
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.Add(float64(bytesFetched))
	}
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, duration time.Duration) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimited counts one rejected request.
func ObserveRateLimited() {
	Init()
	rateLimitedTotal.Inc()
}

// RateLimitedTotal exposes the rejection counter for assertions.
func RateLimitedTotal() prometheus.Counter {
	Init()
	return rateLimitedTotal
}
