package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devilmonastery/salesdesk/internal/config"
	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// maxResponseBody bounds how much of a buffered response is read.
const maxResponseBody = 16 << 20

// Config holds the pipeline settings fixed at construction.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	AuthEndpoints []string
	RefreshPath   string
	SlowThreshold time.Duration
	Retry         RetryPolicy
	Production    bool
	UserAgent     string
}

// DefaultConfig returns the pipeline defaults for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		Timeout:       30 * time.Second,
		AuthEndpoints: append([]string(nil), config.DefaultAuthEndpoints...),
		RefreshPath:   RouteRefreshToken,
		SlowThreshold: time.Second,
		Retry:         DefaultRetryPolicy(),
		UserAgent:     "salesdesk",
	}
}

// ConfigFrom builds a pipeline Config from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	out := DefaultConfig(cfg.API.BaseURL)
	out.Timeout = cfg.API.Timeout
	if len(cfg.API.AuthEndpoints) > 0 {
		out.AuthEndpoints = append([]string(nil), cfg.API.AuthEndpoints...)
	}
	out.SlowThreshold = cfg.API.SlowThreshold
	out.Retry = RetryPolicy{
		MaxRetries:  cfg.API.Retry.MaxRetries,
		BaseDelay:   cfg.API.Retry.BaseDelay,
		StatusCodes: append([]int(nil), cfg.API.Retry.StatusCodes...),
	}
	if len(out.Retry.StatusCodes) == 0 {
		out.Retry.StatusCodes = DefaultRetryPolicy().StatusCodes
	}
	out.Production = cfg.Environment.IsProduction()
	if cfg.API.UserAgent != "" {
		out.UserAgent = cfg.API.UserAgent
	}
	return out
}

// Client executes API calls with bearer attachment, single-flight token
// refresh, transient-failure retries and error normalization.
type Client struct {
	cfg         Config
	baseURL     *url.URL
	httpClient  *http.Client
	tokens      TokenManager
	logger      *slog.Logger
	reporter    Reporter
	onExpired   func(ctx context.Context)
	downloadDir string
	refresh     *refreshCoordinator
	shared      bool
	rateLimit   float64
	rateBurst   int

	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. It is used as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithReporter sets the production error-tracking sink.
func WithReporter(r Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// WithSessionExpiredHandler sets the callback invoked once when a refresh
// fails and the session is cleared. The web server redirects to the login
// route from here; the CLI prints a hint.
func WithSessionExpiredHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onExpired = fn }
}

// WithRateLimit wraps the HTTP transport in an outbound token bucket once
// every option has been applied, so it also covers WithHTTPClient.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.rateLimit = rps
		c.rateBurst = burst
	}
}

// WithRefreshGroup coordinates token refreshes through g instead of a
// coordinator private to the Client.
func WithRefreshGroup(g *RefreshGroup) Option {
	return func(c *Client) {
		c.refresh = &g.rc
		c.shared = true
	}
}

// WithDownloadDir sets the directory Download writes into.
func WithDownloadDir(dir string) Option {
	return func(c *Client) { c.downloadDir = dir }
}

// New creates a Client. tokens may not be nil.
func New(cfg Config, tokens TokenManager, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = RouteRefreshToken
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = time.Second
	}

	c := &Client{
		cfg:         cfg,
		baseURL:     base,
		tokens:      tokens,
		downloadDir: ".",
		httpClient: &http.Client{
			Transport: NewMetricsTransport(http.DefaultTransport),
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rateLimit > 0 {
		hc := *c.httpClient
		hc.Transport = NewRateLimitTransport(hc.Transport, c.rateLimit, c.rateBurst)
		c.httpClient = &hc
	}
	if c.refresh == nil {
		c.refresh = &refreshCoordinator{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("component", "api-client"))
	if c.reporter == nil {
		c.reporter = LogReporter{Logger: c.logger}
	}
	return c, nil
}

// Tokens returns the token manager the client reads from.
func (c *Client) Tokens() TokenManager {
	return c.tokens
}

// Request describes one logical API call. The per-call fields are stamped
// by the pipeline.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string

	// OnProgress receives upload progress from 0 to 100.
	OnProgress func(percent int)

	// ID is the request id of the most recent send.
	ID string
	// Retries counts backoff retries already performed.
	Retries int
	// StartedAt is when the most recent send began.
	StartedAt time.Time

	refreshed bool
	raw       bool
}

// RequestOption adjusts a Request before it is sent.
type RequestOption func(*Request)

// WithQuery adds query parameters.
func WithQuery(values url.Values) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = url.Values{}
		}
		for k, vs := range values {
			for _, v := range vs {
				r.Query.Add(k, v)
			}
		}
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set(key, value)
	}
}

// NewRequest builds a Request with a JSON body when body is not nil.
func NewRequest(method, path string, body any, opts ...RequestOption) (*Request, error) {
	req := &Request{Method: method, Path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{StatusCode: http.StatusInternalServerError, Detail: "Invalid request body", Err: err}
		}
		req.Body = data
		req.ContentType = "application/json"
	}
	for _, opt := range opts {
		opt(req)
	}
	return req, nil
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error) {
	return c.call(ctx, http.MethodGet, path, nil, opts)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.call(ctx, http.MethodPost, path, body, opts)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.call(ctx, http.MethodPut, path, body, opts)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.call(ctx, http.MethodPatch, path, body, opts)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error) {
	return c.call(ctx, http.MethodDelete, path, nil, opts)
}

func (c *Client) call(ctx context.Context, method, path string, body any, opts []RequestOption) (*Envelope, error) {
	req, err := NewRequest(method, path, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Do executes req, retrying transient failures with exponential backoff.
// It returns an envelope for every 2xx response, even one whose envelope
// status reports a failure, and an *APIError otherwise.
func (c *Client) Do(ctx context.Context, req *Request) (*Envelope, error) {
	for {
		res, err := c.send(ctx, req)
		if err == nil {
			defer res.close()
			env, decodeErr := decodeEnvelope(res.status, res.body)
			if decodeErr != nil {
				return nil, &APIError{StatusCode: http.StatusInternalServerError, Detail: "Invalid response body", Err: decodeErr}
			}
			env.RequestID = req.ID
			return env, nil
		}

		apiErr, _ := AsAPIError(err)
		if !c.cfg.Retry.ShouldRetry(req.Retries, apiErr) || ctx.Err() != nil {
			return nil, err
		}

		delay := c.cfg.Retry.Delay(req.Retries)
		c.logger.Warn("retrying request",
			slog.String("method", req.Method),
			slog.String("url", req.Path),
			slog.Int("attempt", req.Retries+1),
			slog.Int("max_retries", c.cfg.Retry.MaxRetries),
			slog.Duration("delay", delay),
			slog.Int("status", apiErr.StatusCode))
		metrics.RecordRetry(req.Path, apiErr.StatusCode)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, apiErr
		}
		req.Retries++
	}
}

// result is one HTTP exchange. For raw successful responses the body is
// left unread and must be closed.
type result struct {
	status int
	header http.Header
	body   []byte
	stream io.ReadCloser
}

func (r *result) close() {
	if r.stream != nil {
		r.stream.Close()
	}
}

// roundTrip sends req once. When bearer is empty the access token is read
// from the token manager, unless the path is an auth endpoint.
func (c *Client) roundTrip(ctx context.Context, req *Request, bearer string) (*result, error) {
	target := c.resolve(req.Path, req.Query)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
		if req.OnProgress != nil {
			body = newProgressReader(req.Body, req.OnProgress)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, target, body)
	if err != nil {
		cancel()
		return nil, &APIError{StatusCode: http.StatusInternalServerError, Detail: err.Error(), Err: err}
	}
	if req.Body != nil {
		httpReq.ContentLength = int64(len(req.Body))
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	if !c.isAuthEndpoint(req.Path) {
		token := bearer
		if token == "" {
			token, err = c.tokens.AccessToken(ctx)
			if err != nil {
				c.logger.Warn("failed to read access token", slog.Any("error", err))
				token = ""
			}
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	req.ID = newRequestID()
	req.StartedAt = time.Now()
	httpReq.Header.Set(HeaderRequestID, req.ID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		apiErr := transformTransportError(err)
		if ctx.Err() != nil {
			apiErr = transformTransportError(ctx.Err())
		}
		c.logFailure(ctx, req, 0, time.Since(req.StartedAt), apiErr, nil)
		return nil, apiErr
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok && req.raw {
		c.logSuccess(ctx, req, resp.StatusCode, time.Since(req.StartedAt))
		return &result{
			status: resp.StatusCode,
			header: resp.Header,
			stream: &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
		}, nil
	}

	defer cancel()
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		apiErr := transformTransportError(err)
		c.logFailure(ctx, req, resp.StatusCode, time.Since(req.StartedAt), apiErr, nil)
		return nil, apiErr
	}

	duration := time.Since(req.StartedAt)
	if ok {
		c.logSuccess(ctx, req, resp.StatusCode, duration)
	} else {
		c.logFailure(ctx, req, resp.StatusCode, duration, transformResponse(resp.StatusCode, data), data)
	}
	return &result{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// isAuthEndpoint reports whether path is exempt from bearer attachment and
// from the refresh branch.
func (c *Client) isAuthEndpoint(path string) bool {
	for _, endpoint := range c.cfg.AuthEndpoints {
		if endpoint != "" && strings.Contains(path, endpoint) {
			return true
		}
	}
	return false
}

// resolve joins path onto the base URL. Absolute URLs are used as given.
func (c *Client) resolve(path string, query url.Values) string {
	ref, err := url.Parse(path)
	if err != nil {
		ref = &url.URL{Path: path}
	}
	u := ref
	if !ref.IsAbs() {
		ref.Path = strings.TrimPrefix(ref.Path, "/")
		u = c.baseURL.ResolveReference(ref)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
