// Package metrics exposes Prometheus collectors for the delegate service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal                 *prometheus.CounterVec
	uploadsTotal               *prometheus.CounterVec
	availabilityChecksTotal    *prometheus.CounterVec
	captureStagesTotal         *prometheus.CounterVec
	restrictedPagesTotal       prometheus.Counter
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call multiple
// times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapd_pages_total",
				Help: "Total pages processed, labeled by classified kind.",
			},
			[]string{"kind"},
		)

		uploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapd_uploads_total",
				Help: "Total archive upload attempts, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		availabilityChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapd_availability_checks_total",
				Help: "Total archive availability checks, labeled by kind.",
			},
			[]string{"kind"},
		)

		captureStagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapd_capture_stages_total",
				Help: "Capture pipeline state transitions, labeled by state.",
			},
			[]string{"state"},
		)

		restrictedPagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "recapd_restricted_pages_total",
				Help: "Pages where restriction markers suppressed uploads.",
			},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recapd_http_request_duration_seconds",
				Help:    "Histogram of API request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one processed page for the classified kind.
func ObservePage(kind string) {
	if pagesTotal == nil {
		return
	}
	pagesTotal.WithLabelValues(kind).Inc()
}

// ObserveUpload counts one upload attempt by outcome: "accepted",
// "rejected", or "error".
func ObserveUpload(kind, outcome string) {
	if uploadsTotal == nil {
		return
	}
	uploadsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveAvailabilityCheck counts one archive availability round trip.
func ObserveAvailabilityCheck(kind string) {
	if availabilityChecksTotal == nil {
		return
	}
	availabilityChecksTotal.WithLabelValues(kind).Inc()
}

// ObserveCaptureStage counts a capture pipeline transition.
func ObserveCaptureStage(state string) {
	if captureStagesTotal == nil {
		return
	}
	captureStagesTotal.WithLabelValues(state).Inc()
}

// ObserveRestrictedPage counts a restriction-suppressed page.
func ObserveRestrictedPage() {
	if restrictedPagesTotal == nil {
		return
	}
	restrictedPagesTotal.Inc()
}

// ObserveHTTPRequest records one API request latency sample.
func ObserveHTTPRequest(method, route string, duration time.Duration) {
	if httpRequestDurationSeconds == nil {
		return
	}
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
