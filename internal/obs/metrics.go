package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Authentication flow metrics.
var (
	loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	codesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_codes_sent_total",
			Help: "One-time codes sent by purpose.",
		},
		[]string{"purpose"},
	)

	codeVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_code_verifications_total",
			Help: "One-time code verification attempts by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		loginAttemptsTotal, codesSentTotal, codeVerificationsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordLogin counts a login attempt. Outcome is one of
// success|invalid_credentials|suspended|inactive|error.
func RecordLogin(outcome string) {
	loginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordCodeSent counts a one-time code dispatch for the given purpose.
func RecordCodeSent(purpose string) {
	codesSentTotal.WithLabelValues(purpose).Inc()
}

// RecordCodeVerification counts a verification attempt.
// Outcome is one of success|invalid|expired|rate_limited|error.
func RecordCodeVerification(purpose, outcome string) {
	codeVerificationsTotal.WithLabelValues(purpose, outcome).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight accounting.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-account admin paths so metric cardinality stays
// bounded; every other path is reported literally.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 4 && parts[0] == "v1" && parts[1] == "admin" && parts[2] == "accounts" {
		if len(parts) == 4 {
			return "/v1/admin/accounts/:id"
		}
		if len(parts) == 5 {
			return "/v1/admin/accounts/:id/" + parts[4]
		}
	}
	return path
}

// statusWriter records the response code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
