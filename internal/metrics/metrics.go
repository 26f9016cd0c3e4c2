package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total number of HTTP requests served by the relay",
		},
		[]string{"method", "path", "status_code"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Upstream resolver metrics
	ResolverAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_attempts_total",
			Help: "Upstream attempts by header preset and outcome",
		},
		[]string{"preset", "outcome"},
	)

	ResolverFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_feed_fallback_total",
			Help: "RSS fallbacks after every preset failed",
		},
		[]string{"outcome"},
	)

	// Fetch controller metrics
	BrowseSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browse_sessions_total",
			Help: "Fetch sessions by branch and final status",
		},
		[]string{"branch", "status"},
	)
)
