package client

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// ReportEvent describes a failed call forwarded to an error-tracking sink.
type ReportEvent struct {
	Method     string
	URL        string
	StatusCode int // HTTP status, 0 when no response arrived
	Duration   time.Duration
	RequestID  string
	Err        *APIError
	Body       string
}

// Reporter receives production failures.
type Reporter interface {
	Report(ctx context.Context, event ReportEvent)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, event ReportEvent)

func (f ReporterFunc) Report(ctx context.Context, event ReportEvent) { f(ctx, event) }

// LogReporter writes reported failures as structured error records.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Report(ctx context.Context, event ReportEvent) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics.APIReportedErrors.WithLabelValues(strconv.Itoa(event.StatusCode)).Inc()
	logger.LogAttrs(ctx, slog.LevelError, "api request failed",
		slog.String("type", "api_error"),
		slog.String("method", event.Method),
		slog.String("url", event.URL),
		slog.Int("status", event.StatusCode),
		slog.Int64("duration_ms", event.Duration.Milliseconds()),
		slog.String("request_id", event.RequestID),
		slog.String("error_code", event.Err.Code),
		slog.String("error", event.Err.Error()),
	)
}

// Client-error statuses that are expected in normal use and never reported.
var unreportedStatuses = map[int]bool{
	400: true,
	401: true,
	403: true,
	404: true,
	422: true,
}

func (c *Client) logSuccess(ctx context.Context, req *Request, status int, duration time.Duration) {
	if c.cfg.Production {
		return
	}
	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("url", req.Path),
		slog.String("request_id", req.ID),
		slog.Int("status", status),
		slog.Int64("duration_ms", duration.Milliseconds()),
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "api request", attrs...)
	if duration > c.cfg.SlowThreshold {
		attrs = append(attrs, slog.Int64("threshold_ms", c.cfg.SlowThreshold.Milliseconds()))
		c.logger.LogAttrs(ctx, slog.LevelWarn, "slow request detected", attrs...)
	}
}

func (c *Client) logFailure(ctx context.Context, req *Request, status int, duration time.Duration, apiErr *APIError, body []byte) {
	if c.cfg.Production {
		if unreportedStatuses[status] || c.reporter == nil {
			return
		}
		c.reporter.Report(ctx, ReportEvent{
			Method:     req.Method,
			URL:        req.Path,
			StatusCode: status,
			Duration:   duration,
			RequestID:  req.ID,
			Err:        apiErr,
			Body:       truncate(body, 2048),
		})
		return
	}
	c.logger.LogAttrs(ctx, slog.LevelError, "api request failed",
		slog.String("method", req.Method),
		slog.String("url", req.Path),
		slog.String("request_id", req.ID),
		slog.Int("status", status),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.Int("request_bytes", len(req.Body)),
		slog.String("response", truncate(body, 2048)),
		slog.String("error_code", apiErr.Code),
		slog.Any("error", apiErr.Err),
	)
}
