// Package metrics exposes the Prometheus collectors of the library service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels shared by the business counters.
const (
	ResultSuccess  = "success"
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
	ResultDenied   = "denied"
	ResultError    = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "library_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	loanTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_loan_transitions_total",
		Help: "Borrow and return attempts by outcome",
	}, []string{"operation", "result"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_auth_attempts_total",
		Help: "Registration and login attempts by outcome",
	}, []string{"operation", "result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveLoan counts a borrow or return attempt.
func ObserveLoan(operation, result string) {
	loanTransitions.WithLabelValues(operation, result).Inc()
}

// ObserveAuth counts a register or login attempt.
func ObserveAuth(operation, result string) {
	authAttempts.WithLabelValues(operation, result).Inc()
}
