package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/services"
	"github.com/devilmonastery/salesdesk/web/internal/session"
)

// LoginPath is where expired or missing sessions are sent
const LoginPath = "/login"

// Handler holds dependencies for all web handlers
type Handler struct {
	apiConfig      client.Config
	appURL         string
	sessionManager *session.Manager
	providers      *auth.Registry
	httpClient     *http.Client
	reporter       client.Reporter
	oauthMaxAge    time.Duration
	refreshGroups  *refreshGroups
	now            func() time.Time
	log            *slog.Logger
}

// Deps are the collaborators a Handler needs
type Deps struct {
	APIConfig      client.Config
	AppURL         string
	SessionManager *session.Manager
	Providers      *auth.Registry
	HTTPClient     *http.Client    // shared by every per-request pipeline client
	Reporter       client.Reporter // production error sink; nil uses the default
	OAuthMaxAge    time.Duration
	Logger         *slog.Logger
}

// New creates a new handler with dependencies
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Transport: client.NewMetricsTransport(nil)}
	}
	if d.OAuthMaxAge <= 0 {
		d.OAuthMaxAge = 10 * time.Minute
	}
	return &Handler{
		apiConfig:      d.APIConfig,
		appURL:         d.AppURL,
		sessionManager: d.SessionManager,
		providers:      d.Providers,
		httpClient:     d.HTTPClient,
		reporter:       d.Reporter,
		oauthMaxAge:    d.OAuthMaxAge,
		refreshGroups:  newRefreshGroups(),
		now:            time.Now,
		log:            d.Logger.With(slog.String("component", "web_handler")),
	}
}

// requestScope is the pipeline client bound to one browser request. Its
// tokens live in the session cookies; refreshes are shared with the other
// in-flight requests of the same session.
type requestScope struct {
	api     *client.Client
	tokens  *session.CookieTokenStore
	expired atomic.Bool
}

// scope creates a per-request pipeline client with automatic token refresh.
// The HTTP connection pool is shared, so this is cheap.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (*requestScope, error) {
	s := &requestScope{tokens: session.NewCookieTokenStore(h.sessionManager, r, w)}
	opts := []client.Option{
		client.WithHTTPClient(h.httpClient),
		client.WithLogger(h.log),
		client.WithSessionExpiredHandler(func(context.Context) { s.expired.Store(true) }),
	}
	if h.reporter != nil {
		opts = append(opts, client.WithReporter(h.reporter))
	}
	if refresh, _ := s.tokens.RefreshToken(r.Context()); refresh != "" {
		opts = append(opts, client.WithRefreshGroup(h.refreshGroups.get(refresh)))
	}
	api, err := client.New(h.apiConfig, s.tokens, opts...)
	if err != nil {
		return nil, err
	}
	s.api = api
	return s, nil
}

// withScope adapts a handler that needs a pipeline client.
func (h *Handler) withScope(fn func(w http.ResponseWriter, r *http.Request, s *requestScope)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.scope(w, r)
		if err != nil {
			h.log.Error("failed to create api client", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
			return
		}
		fn(w, r, s)
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// apiErrorResponse mirrors client.APIError for the browser
type apiErrorResponse struct {
	StatusCode int                 `json:"statusCode"`
	Detail     string              `json:"detail"`
	Code       string              `json:"code,omitempty"`
	Fields     map[string][]string `json:"fields,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes err to the browser. A session the pipeline gave up on is
// sent back to the login page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, s *requestScope, err error) {
	if s != nil && s.expired.Load() {
		h.log.Info("session expired, redirecting to login", slog.String("path", r.URL.Path))
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}

	var re *services.ResponseError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &re):
		status := re.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: re.Message, RequestID: re.RequestID})
	default:
		if apiErr, ok := client.AsAPIError(err); ok {
			writeJSON(w, apiErr.StatusCode, apiErrorResponse{
				StatusCode: apiErr.StatusCode,
				Detail:     apiErr.Detail,
				Code:       apiErr.Code,
				Fields:     apiErr.Fields,
			})
			return
		}
		h.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("reason", services.FailureReason(err)),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
	}
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", services.ErrInvalidInput)
	}
	return nil
}
