// Package metrics provides Prometheus instrumentation for a chat session.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TranslationRequestsTotal counts per-item translation requests.
	TranslationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmchat_translation_requests_total",
			Help: "Total number of suggestion translation requests",
		},
		[]string{"engine", "status"},
	)

	// TranslationRequestDuration tracks per-item translation latency.
	TranslationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farmchat_translation_request_duration_seconds",
			Help:    "Duration of suggestion translation requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0},
		},
		[]string{"engine", "status"},
	)

	// TranslationRunsTotal counts translation runs by how they ended.
	TranslationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmchat_translation_runs_total",
			Help: "Total translation runs by outcome",
		},
		[]string{"outcome"},
	)

	// BackendRequestsTotal counts calls to the assistant backend.
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmchat_backend_requests_total",
			Help: "Total backend requests",
		},
		[]string{"endpoint", "status"},
	)

	// BackendRequestDuration tracks backend latency.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farmchat_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	// TurnsTotal counts conversation turns by role.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmchat_turns_total",
			Help: "Total conversation turns appended",
		},
		[]string{"role"},
	)
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordTranslation records one per-item translation request.
func RecordTranslation(engine string, duration time.Duration, success bool) {
	s := status(success)
	TranslationRequestsTotal.WithLabelValues(engine, s).Inc()
	TranslationRequestDuration.WithLabelValues(engine, s).Observe(duration.Seconds())
}

// RecordRun records the end of a translation run. outcome is
// "completed" or "superseded".
func RecordRun(outcome string) {
	TranslationRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordBackend records a backend call.
func RecordBackend(endpoint string, duration time.Duration, success bool) {
	BackendRequestsTotal.WithLabelValues(endpoint, status(success)).Inc()
	BackendRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordTurn records an appended conversation turn.
func RecordTurn(role string) {
	TurnsTotal.WithLabelValues(role).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
