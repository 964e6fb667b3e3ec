// Package metrics registers the Prometheus collectors of the API and
// exposes small helpers so call sites stay one line long.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"backend"}, // "redis", "memory"
	)

	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_results_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "bypass"
	)

	// Auth
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Failed authentication attempts by reason",
		},
		[]string{"reason"},
	)

	// Mail
	MailDispatch = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_dispatch_total",
			Help: "Outbound mail dispatch attempts by transport and result",
		},
		[]string{"transport", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordAuthFailure counts a rejected login or token.
func RecordAuthFailure(reason string) {
	AuthFailures.WithLabelValues(reason).Inc()
}

// RecordMailDispatch counts a mail hand-off.
func RecordMailDispatch(transport string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	MailDispatch.WithLabelValues(transport, result).Inc()
}
