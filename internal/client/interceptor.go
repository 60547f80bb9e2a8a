package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// send performs one attempt, including the 401 refresh-and-replay branch.
func (c *Client) send(ctx context.Context, req *Request) (*result, error) {
	sentGen := c.refresh.generation()
	res, err := c.roundTrip(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if res.status >= 200 && res.status < 300 {
		return res, nil
	}

	if res.status == http.StatusUnauthorized && !req.refreshed && !c.isAuthEndpoint(req.Path) {
		req.refreshed = true
		token, refreshErr := c.awaitRefresh(ctx, sentGen)
		if refreshErr != nil {
			return nil, transformResponse(res.status, res.body)
		}
		res, err = c.roundTrip(ctx, req, token)
		if err != nil {
			return nil, err
		}
		if res.status >= 200 && res.status < 300 {
			return res, nil
		}
	}

	return nil, transformResponse(res.status, res.body)
}

// awaitRefresh obtains a fresh access token for a request that was sent
// during generation sentGen and answered 401.
func (c *Client) awaitRefresh(ctx context.Context, sentGen uint64) (string, error) {
	done := make(chan refreshResult, 1)
	action, last := c.refresh.join(sentGen, func(res refreshResult) { done <- res })

	switch action {
	case actionReuse:
		return c.adopt(ctx, last)
	case actionWait:
		select {
		case res := <-done:
			return c.adopt(ctx, res)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// The refresh outlives a cancelled leader so queued requests still resume.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	pair, err := c.refreshAccessToken(rctx)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		c.logger.Error("token refresh failed", slog.Any("error", err))
		if clearErr := c.tokens.ClearTokens(rctx); clearErr != nil {
			c.logger.Error("failed to clear tokens", slog.Any("error", clearErr))
		}
	}
	waiters := c.refresh.finish(refreshResult{token: pair.Access, pair: pair, err: err})
	metrics.RecordRefresh(outcome, time.Since(start), waiters)

	if err != nil {
		metrics.SessionsExpired.Inc()
		if c.onExpired != nil {
			c.onExpired(ctx)
		}
	}
	return pair.Access, err
}

// adopt applies a refresh outcome produced by another request. Inside a
// RefreshGroup the outcome also has to reach this Client's own token store.
func (c *Client) adopt(ctx context.Context, res refreshResult) (string, error) {
	if !c.shared {
		return res.token, res.err
	}
	if res.err != nil {
		if err := c.tokens.ClearTokens(ctx); err != nil {
			c.logger.Error("failed to clear tokens", slog.Any("error", err))
		}
		if c.onExpired != nil {
			c.onExpired(ctx)
		}
		return "", res.err
	}
	if err := c.tokens.SetTokens(ctx, res.pair); err != nil {
		return "", &APIError{StatusCode: http.StatusUnauthorized, Detail: "Token refresh failed", Err: err}
	}
	return res.token, nil
}

// refreshAccessToken exchanges the stored refresh token for a new pair.
func (c *Client) refreshAccessToken(ctx context.Context) (TokenPair, error) {
	refresh, err := c.tokens.RefreshToken(ctx)
	if err != nil {
		return TokenPair{}, &APIError{StatusCode: http.StatusUnauthorized, Detail: "Token refresh failed", Err: err}
	}
	if refresh == "" {
		return TokenPair{}, &APIError{StatusCode: http.StatusUnauthorized, Detail: "No refresh token available"}
	}

	req, err := NewRequest(http.MethodPost, c.cfg.RefreshPath, map[string]string{"refresh": refresh})
	if err != nil {
		return TokenPair{}, err
	}
	res, err := c.roundTrip(ctx, req, "")
	if err != nil {
		return TokenPair{}, &APIError{StatusCode: http.StatusUnauthorized, Detail: "Token refresh failed", Err: err}
	}
	if res.status < 200 || res.status >= 300 {
		return TokenPair{}, &APIError{StatusCode: http.StatusUnauthorized, Detail: "Token refresh failed", Err: transformResponse(res.status, res.body)}
	}

	env, err := decodeEnvelope(res.status, res.body)
	if err != nil {
		return TokenPair{}, &APIError{StatusCode: http.StatusUnauthorized, Detail: "Token refresh failed", Err: err}
	}
	pair, err := Decode[TokenPair](env)
	if err != nil {
		return TokenPair{}, &APIError{StatusCode: http.StatusUnauthorized, Detail: "Token refresh failed", Err: err}
	}
	if !pair.OK() || pair.Data.Access == "" {
		return TokenPair{}, &APIError{
			StatusCode: http.StatusUnauthorized,
			Detail:     "Token refresh failed",
			Err:        fmt.Errorf("refresh rejected with status %d: %s", pair.Status.StatusCode, pair.Status.Detail),
		}
	}

	// Without rotation the API returns only a new access token.
	if pair.Data.Refresh == "" {
		pair.Data.Refresh = refresh
	}
	if err := c.tokens.SetTokens(ctx, pair.Data); err != nil {
		return TokenPair{}, &APIError{StatusCode: http.StatusUnauthorized, Detail: "Token refresh failed", Err: err}
	}
	c.logger.Info("successfully refreshed token")
	return pair.Data, nil
}
