package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/pkg/logger"
	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// AuthService provides the account workflows: sign-up, sign-in, password
// reset and session teardown. Tokens it obtains go to the API's TokenManager.
type AuthService struct {
	api    API
	logger *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(api API, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{api: api, logger: logger.WithComponent(log, "auth-service")}
}

// SignUp creates an account. The API answers with a message naming the
// address the OTP went to.
func (s *AuthService) SignUp(ctx context.Context, req entities.SignUpRequest) (result *entities.SignUpResult, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("auth", "sign_up", time.Since(start), err)
	}()

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return nil, invalid("email and password are required")
	}

	env, err := s.api.Post(ctx, client.RouteSignUp, req)
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(env, "Signup failed"); err != nil {
		return nil, err
	}

	message := dataMessage(env, "OTP sent successfully")
	return &entities.SignUpResult{
		Message: message,
		Email:   extractEmail(message, req.Email),
	}, nil
}

// VerifyAccount completes sign-up with the emailed OTP, stores the issued
// tokens and returns the new user.
func (s *AuthService) VerifyAccount(ctx context.Context, email, otp string) (user *entities.User, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("auth", "verify_account", time.Since(start), err)
	}()

	if email == "" || otp == "" {
		return nil, invalid("email and otp_code are required")
	}

	env, err := s.api.Post(ctx, client.RouteVerifyAccount, entities.VerifyOTPRequest{Email: email, OTPCode: otp})
	if err != nil {
		return nil, err
	}
	if err = requireData(env, "Account verification failed"); err != nil {
		return nil, err
	}

	// The payload is the token pair and the user flattened into one object.
	var pair client.TokenPair
	if err = json.Unmarshal(env.Data, &pair); err != nil {
		return nil, err
	}
	var u entities.User
	if err = json.Unmarshal(env.Data, &u); err != nil {
		return nil, err
	}
	if err = s.storeTokens(ctx, pair); err != nil {
		return nil, err
	}

	s.logger.Info("account verified", slog.String("user_email", u.Email))
	return u.Public(), nil
}

// ResendOTP asks the API to send a new sign-up OTP.
func (s *AuthService) ResendOTP(ctx context.Context, email string) (message string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("auth", "resend_otp", time.Since(start), err)
	}()

	env, err := s.api.Post(ctx, client.RouteResendOTP, entities.EmailRequest{Email: email})
	if err != nil {
		return "", err
	}
	if err = checkEnvelope(env, "Failed to resend OTP"); err != nil {
		return "", err
	}
	return dataMessage(env, "OTP resent successfully"), nil
}

// SignIn exchanges credentials for a token pair and stores it.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("auth", "sign_in", time.Since(start), err)
	}()

	if email == "" || password == "" {
		return invalid("email and password are required")
	}

	resp, err := decodeEnvelope[client.TokenPair](s.api.Post(ctx, client.RouteLogin, entities.LoginRequest{Email: email, Password: password}))
	if err != nil {
		return err
	}
	if err = checkEnvelope(resp, "Sign in failed"); err != nil {
		return err
	}
	if resp.Data.Access == "" {
		return &ResponseError{StatusCode: resp.Status.StatusCode, Message: resp.Message("Sign in failed"), RequestID: resp.RequestID}
	}
	return s.storeTokens(ctx, resp.Data)
}

// ForgotPassword sends a password reset OTP.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (message string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("auth", "forgot_password", time.Since(start), err)
	}()

	env, err := s.api.Post(ctx, client.RouteForgotPassword, entities.EmailRequest{Email: email})
	if err != nil {
		return "", err
	}
	if err = checkEnvelope(env, "Failed to send reset OTP"); err != nil {
		return "", err
	}
	return dataMessage(env, "Password reset OTP sent successfully"), nil
}

// ResetPassword completes a password reset with the emailed OTP.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, password string) (message string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("auth", "reset_password", time.Since(start), err)
	}()

	if email == "" || otp == "" || password == "" {
		return "", invalid("email, otp_code and password are required")
	}

	env, err := s.api.Post(ctx, client.RouteResetPassword, entities.ResetPasswordRequest{Email: email, Password: password, OTPCode: otp})
	if err != nil {
		return "", err
	}
	if err = checkEnvelope(env, "Password reset failed"); err != nil {
		return "", err
	}
	return dataMessage(env, "Password reset successful"), nil
}

// SignOut tells the API to end the session and always clears local tokens.
// A failed logout call is logged, not returned.
func (s *AuthService) SignOut(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("auth", "sign_out", time.Since(start), err)
	}()

	if _, callErr := s.api.Post(ctx, client.RouteLogout, nil); callErr != nil {
		s.logger.Warn("logout call failed", slog.String("error", callErr.Error()))
	}
	return s.api.Tokens().ClearTokens(ctx)
}

// CurrentUser fetches the signed-in user's profile.
func (s *AuthService) CurrentUser(ctx context.Context) (user *entities.User, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("auth", "current_user", time.Since(start), err)
	}()

	env, err := s.api.Get(ctx, client.RouteProfile)
	if err != nil {
		return nil, err
	}
	if err = requireData(env, "Failed to fetch current user"); err != nil {
		return nil, err
	}
	var u entities.User
	if err = json.Unmarshal(env.Data, &u); err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// IsAuthenticated reports whether an access token is stored.
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	token, err := s.api.Tokens().AccessToken(ctx)
	return err == nil && token != ""
}

func (s *AuthService) storeTokens(ctx context.Context, pair client.TokenPair) error {
	if pair.Access == "" {
		return ErrNoTokensIssued
	}
	return s.api.Tokens().SetTokens(ctx, pair)
}

// requireData is checkEnvelope plus a non-empty payload.
func requireData(env *client.Envelope, fallback string) error {
	if err := checkEnvelope(env, fallback); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(env.Data))
	if raw == "" || raw == "null" {
		return &ResponseError{StatusCode: env.Status.StatusCode, Message: env.Message(fallback), RequestID: env.RequestID}
	}
	return nil
}

func decodeEnvelope[T any](env *client.Envelope, err error) (*client.Response[T], error) {
	if err != nil {
		return nil, err
	}
	return client.Decode[T](env)
}
