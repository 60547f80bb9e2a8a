package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// HeaderRequestID identifies a browser request in logs and responses
const HeaderRequestID = "X-Request-ID"

// secretParams never appear in the access log. OAuth callbacks carry the
// authorization code and state in the query.
var secretParams = []string{"code", "state", "token", "otp"}

// statusRecorder captures what the handler sent
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

type contextKey string

const userHolderKey contextKey = "log_user"

// userHolder lets RequireAuth report the user back to the access log,
// which only sees its own copy of the request.
type userHolder struct {
	user *auth.UserContext
}

// accessEntry is one line of the access log
type accessEntry struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Route      string `json:"route"`
	Query      string `json:"query,omitempty"`
	Status     int    `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Bytes      int64  `json:"bytes"`
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent,omitempty"`
	Proto      string `json:"proto"`
	UserID     string `json:"user_id,omitempty"`
	UserEmail  string `json:"user_email,omitempty"`
	Error      bool   `json:"error,omitempty"`
}

// LogRequest writes one JSON access log line per request to out and
// records the HTTP metrics. Health and metrics scrapes are not logged.
func LogRequest(out io.Writer) func(http.Handler) http.Handler {
	var mu sync.Mutex
	enc := json.NewEncoder(out)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			metrics.HTTPActiveRequests.Inc()
			defer metrics.HTTPActiveRequests.Dec()

			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)

			holder := &userHolder{}
			r = r.WithContext(context.WithValue(r.Context(), userHolderKey, holder))
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			route := metrics.NormalizeRoute(r.URL.Path)
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(float64(duration.Milliseconds()))

			entry := accessEntry{
				Timestamp:  start.UTC().Format(time.RFC3339Nano),
				RequestID:  requestID,
				Method:     r.Method,
				Path:       r.URL.Path,
				Route:      route,
				Query:      redactQuery(r.URL.RawQuery),
				Status:     rec.status,
				DurationMS: duration.Milliseconds(),
				Bytes:      rec.written,
				ClientIP:   clientIP(r),
				UserAgent:  r.UserAgent(),
				Proto:      r.Proto,
				Error:      rec.status >= http.StatusBadRequest,
			}
			if holder.user != nil {
				entry.UserID = holder.user.UserID
				entry.UserEmail = holder.user.Email
			}

			mu.Lock()
			_ = enc.Encode(entry)
			mu.Unlock()
		})
	}
}

// clientIP prefers the first proxy-reported address over the socket peer
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func redactQuery(raw string) string {
	if raw == "" {
		return ""
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparseable]"
	}
	changed := false
	for _, name := range secretParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return q.Encode()
}
