package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: []float64{0.1, 0.3, 0.5, 1.0, 2.0, 5.0, 15.0, 60.0},
		},
		[]string{"method", "path"},
	)

	// outcome: accepted, provider_error, reverted
	RelayerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_relayer_attempts_total",
			Help: "User operation submission attempts per relayer.",
		},
		[]string{"provider", "outcome"},
	)

	Validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_validations_total",
			Help: "On-chain transaction validations by outcome.",
		},
		[]string{"outcome"},
	)

	PollOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_poll_outcomes_total",
			Help: "Terminal states reached by transaction pollers.",
		},
		[]string{"state"},
	)

	Credits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_credits_total",
			Help: "Transactions credited, by ledger source.",
		},
		[]string{"source"},
	)
)

// Init registers the collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RelayerAttempts,
		Validations,
		PollOutcomes,
		Credits,
	)
}

// Middleware records request count and latency per route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			path = rctx.RoutePattern()
		}
		// unmatched routes are not recorded
		if path == "" {
			return
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
