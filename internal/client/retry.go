package client

import (
	"context"
	"slices"
	"time"
)

// RetryPolicy controls automatic retries of transient failures.
type RetryPolicy struct {
	MaxRetries  int
	BaseDelay   time.Duration
	StatusCodes []int
}

// DefaultRetryPolicy retries 408, 503 and 504 twice, after 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  2,
		BaseDelay:   time.Second,
		StatusCodes: []int{408, 503, 504},
	}
}

// Delay returns the wait before retry n (0-based): BaseDelay * 2^n.
func (p RetryPolicy) Delay(n int) time.Duration {
	return p.BaseDelay * time.Duration(1<<n)
}

// ShouldRetry reports whether a call that has already been retried
// `retries` times may be retried after err.
func (p RetryPolicy) ShouldRetry(retries int, err *APIError) bool {
	if err == nil || retries >= p.MaxRetries {
		return false
	}
	return slices.Contains(p.StatusCodes, err.StatusCode)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
