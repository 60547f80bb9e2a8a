package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/pkg/logger"
	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// CallbackRequest is what a provider redirect hands back to the app
type CallbackRequest struct {
	Provider     string // route name: google, linkedin or microsoft
	Code         string
	State        string
	RedirectURI  string
	CodeVerifier string // set only when PKCE was used
}

// OAuthService completes social sign-in by handing the provider code to the API
type OAuthService struct {
	api    API
	logger *slog.Logger
}

// NewOAuthService creates a new OAuth callback service
func NewOAuthService(api API, log *slog.Logger) *OAuthService {
	if log == nil {
		log = slog.Default()
	}
	return &OAuthService{api: api, logger: logger.WithComponent(log, "oauth-service")}
}

// CompleteCallback validates the callback, exchanges the code through the
// API and stores the issued token pair.
func (s *OAuthService) CompleteCallback(ctx context.Context, req CallbackRequest) (pair client.TokenPair, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("oauth", "complete_callback", time.Since(start), err)
	}()

	if req.Code == "" {
		return pair, ErrMissingCode
	}
	if req.State == "" {
		return pair, ErrMissingState
	}
	backend, err := auth.BackendProviderName(req.Provider)
	if err != nil {
		return pair, err
	}

	// Some deployments answer with a bare token pair, others with an envelope.
	resp, err := decodeEnvelope[client.TokenPair](s.api.Post(ctx, client.RouteSocialLogin, entities.SocialLoginRequest{
		Provider:     backend,
		Code:         req.Code,
		State:        req.State,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: req.CodeVerifier,
	}))
	if err != nil {
		return pair, err
	}
	if err = checkEnvelope(resp, "Social sign-in failed"); err != nil {
		return pair, err
	}
	if resp.Data.Access == "" {
		return pair, ErrNoTokensIssued
	}

	if err = s.api.Tokens().SetTokens(ctx, resp.Data); err != nil {
		return pair, err
	}

	s.logger.Info("social sign-in completed",
		slog.String("provider", req.Provider),
		slog.String("request_id", resp.RequestID))
	return resp.Data, nil
}
