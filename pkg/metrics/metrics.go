package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by method and route.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	// GatewayOps counts document gateway operations. Collection is not a
	// label: names are client-chosen.
	GatewayOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "gateway_operations_total", Help: "Document gateway operations by op and result."},
		[]string{"op", "result"},
	)
	PageViewIncrements = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "page_view_increments_total", Help: "Successful page view increments."},
	)
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "auth_attempts_total", Help: "Register and login attempts by action and result."},
		[]string{"action", "result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPDuration)
	reg.MustRegister(GatewayOps)
	reg.MustRegister(PageViewIncrements)
	reg.MustRegister(AuthAttempts)
}
