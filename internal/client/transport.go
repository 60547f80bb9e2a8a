package client

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// metricsTransport wraps an http.RoundTripper to collect metrics on API calls
type metricsTransport struct {
	base http.RoundTripper
}

// NewMetricsTransport creates a new transport wrapper that records request
// counts, latency and error classes for every remote API call.
func NewMetricsTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &metricsTransport{base: base}
}

// RoundTrip implements http.RoundTripper, wrapping the base transport with metrics collection
func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	route := metrics.NormalizeRoute(req.URL.Path)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}

	metrics.APIRequests.WithLabelValues(req.Method, route, strconv.Itoa(statusCode)).Inc()
	metrics.APIDuration.WithLabelValues(req.Method, route).Observe(float64(duration.Milliseconds()))

	if err != nil || statusCode >= 400 {
		metrics.APIErrors.WithLabelValues(route, metrics.ClassifyAPIError(statusCode, err)).Inc()
	}

	return resp, err
}

// rateLimitTransport delays outbound requests to stay under a token bucket.
type rateLimitTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

// NewRateLimitTransport limits base to rps requests per second with the given burst.
func NewRateLimitTransport(base http.RoundTripper, rps float64, burst int) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimitTransport{base: base, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	metrics.APIRateLimitWaits.Observe(float64(time.Since(start).Milliseconds()))
	return t.base.RoundTrip(req)
}
