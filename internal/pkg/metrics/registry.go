package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// msHistogram returns options for a native histogram of millisecond
// durations.
func msHistogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Name:                            name,
		Help:                            help,
		NativeHistogramBucketFactor:     1.1,
		NativeHistogramMaxBucketNumber:  100,
		NativeHistogramMinResetDuration: time.Hour,
	}
}

// Remote API Metrics
var (
	// APIRequests tracks every request sent to the remote API
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_api_requests_total",
			Help: "Total remote API requests by method, route (normalized path), and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	// APIDuration tracks remote API latency
	APIDuration = promauto.NewHistogramVec(
		msHistogram("salesdesk_api_request_duration_ms", "Remote API request duration in milliseconds"),
		[]string{"method", "route"},
	)

	// APIErrors tracks remote API errors by type
	APIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_api_errors_total",
			Help: "Total remote API errors by route and error type",
		},
		[]string{"route", "error_type"},
	)

	// APIRetries tracks backoff retries on transient failures
	APIRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_api_retries_total",
			Help: "Total backoff retries by route and triggering status code",
		},
		[]string{"route", "status_code"},
	)

	// APIRateLimitWaits tracks time spent waiting on the outbound rate limiter
	APIRateLimitWaits = promauto.NewHistogram(
		msHistogram("salesdesk_api_ratelimit_wait_ms", "Time spent waiting for the outbound rate limiter in milliseconds"),
	)

	// APIReportedErrors tracks failures forwarded to the error-tracking sink
	APIReportedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_api_reported_errors_total",
			Help: "Total failures forwarded to the error-tracking sink by status code",
		},
		[]string{"status_code"},
	)
)

// Token Refresh Metrics
var (
	// TokenRefreshes tracks refresh calls by outcome
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_token_refreshes_total",
			Help: "Total token refresh calls by outcome (success, failure, no_token)",
		},
		[]string{"outcome"},
	)

	// TokenRefreshDuration tracks refresh latency
	TokenRefreshDuration = promauto.NewHistogram(
		msHistogram("salesdesk_token_refresh_duration_ms", "Token refresh duration in milliseconds"),
	)

	// TokenRefreshWaiters tracks how many requests queued behind a single refresh
	TokenRefreshWaiters = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesdesk_token_refresh_waiters",
			Help:    "Number of requests queued behind one refresh call",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	// SessionsExpired tracks terminal refresh failures that ended a session
	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesdesk_sessions_expired_total",
			Help: "Total sessions terminated because the refresh token was rejected",
		},
	)
)

// Service Layer Metrics
var (
	// ServiceOperations tracks service-level operations
	ServiceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_service_operations_total",
			Help: "Total service operations by service, method, and status",
		},
		[]string{"service", "method", "status"},
	)

	// ServiceDuration tracks service operation latency
	ServiceDuration = promauto.NewHistogramVec(
		msHistogram("salesdesk_service_operation_duration_ms", "Service operation duration in milliseconds"),
		[]string{"service", "method"},
	)
)

// HTTP/Web Handler Metrics
var (
	// HTTPRequests tracks HTTP requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks HTTP request duration
	HTTPDuration = promauto.NewHistogramVec(
		msHistogram("salesdesk_http_request_duration_ms", "HTTP request duration in milliseconds"),
		[]string{"method", "path"},
	)

	// HTTPActiveRequests tracks active HTTP requests
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesdesk_http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)
)
