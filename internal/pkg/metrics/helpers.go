package metrics

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RecordServiceOperation records one call of a service method, such as
// ("teams", "invite"). Calls are deferred so err is the method's result.
func RecordServiceOperation(service, method string, duration time.Duration, err error) {
	ServiceDuration.WithLabelValues(service, method).Observe(float64(duration.Milliseconds()))
	ServiceOperations.WithLabelValues(service, method, outcome(err)).Inc()
}

// outcome labels err. Cancellation is counted apart from failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// RecordRetry records one backoff retry for the given request path.
func RecordRetry(path string, statusCode int) {
	APIRetries.WithLabelValues(NormalizeRoute(path), strconv.Itoa(statusCode)).Inc()
}

// RecordRefresh records the outcome of a single refresh call.
func RecordRefresh(outcome string, duration time.Duration, waiters int) {
	TokenRefreshes.WithLabelValues(outcome).Inc()
	TokenRefreshDuration.Observe(float64(duration.Milliseconds()))
	TokenRefreshWaiters.Observe(float64(waiters))
}

var routePatterns = []struct {
	regex   *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`/users/[0-9a-fA-F-]{6,}`), "/users/:id"},
	{regexp.MustCompile(`/teams/[0-9a-zA-Z-]+/invites`), "/teams/:id/invites"},
	{regexp.MustCompile(`/invites/[0-9a-zA-Z-]+`), "/invites/:id"},
	{regexp.MustCompile(`/tasks/[0-9a-zA-Z-]+`), "/tasks/:id"},
	{regexp.MustCompile(`/contacts/[0-9a-fA-F-]{6,}`), "/contacts/:id"},
	{regexp.MustCompile(`/[0-9]+(/|$)`), "/:id$1"},
}

// NormalizeRoute replaces identifiers in an API path with placeholders
// so route labels stay low-cardinality.
func NormalizeRoute(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	normalized := path
	for _, p := range routePatterns {
		normalized = p.regex.ReplaceAllString(normalized, p.replace)
	}
	return normalized
}

type timeout interface {
	Timeout() bool
}

// ClassifyAPIError categorizes remote API failures for metrics
func ClassifyAPIError(statusCode int, err error) string {
	if err != nil {
		var t timeout
		if errors.As(err, &t) && t.Timeout() {
			return "timeout"
		}
		errStr := err.Error()
		switch {
		case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
			return "timeout"
		case strings.Contains(errStr, "connection"):
			return "connection"
		case strings.Contains(errStr, "TLS") || strings.Contains(errStr, "x509"):
			return "tls"
		default:
			return "network"
		}
	}

	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode == 408:
		return "request_timeout"
	case statusCode == 422:
		return "validation"
	case statusCode == 429:
		return "rate_limited"
	case statusCode == 503 || statusCode == 504:
		return "unavailable"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
