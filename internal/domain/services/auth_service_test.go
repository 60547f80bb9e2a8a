package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
)

func TestAuthService_SignUpExtractsEmail(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/signup/", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "Ada", body["first_name"])
		ok(w, "An OTP has been sent to ada.l@example.com")
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{})
	svc := NewAuthService(api, discardLogger())

	res, err := svc.SignUp(context.Background(), entities.SignUpRequest{
		Email: "ADA.L@example.com", Password: "pw", FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada.l@example.com", res.Email)
	assert.Equal(t, "An OTP has been sent to ada.l@example.com", res.Message)
}

func TestAuthService_SignUpFallsBackToInputEmail(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/signup/", func(w http.ResponseWriter, r *http.Request) {
		ok(w, nil)
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{})
	svc := NewAuthService(api, discardLogger())

	res, err := svc.SignUp(context.Background(), entities.SignUpRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.Email)
	assert.Equal(t, "OTP sent successfully", res.Message)
}

func TestAuthService_SignUpBusinessFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/signup/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, http.StatusConflict, "Email already registered", nil)
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{})
	svc := NewAuthService(api, discardLogger())

	_, err := svc.SignUp(context.Background(), entities.SignUpRequest{Email: "ada@example.com", Password: "pw"})
	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusConflict, re.StatusCode)
	assert.Equal(t, "Email already registered", re.Message)
	assert.Equal(t, "rejected", FailureReason(err))
}

func TestAuthService_SignInStoresTokens(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if body["password"] != "right" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		ok(w, map[string]string{"access": "a1", "refresh": "r1"})
	})
	api, tokens := newTestAPI(t, mux, client.TokenPair{})
	svc := NewAuthService(api, discardLogger())
	ctx := context.Background()

	err := svc.SignIn(ctx, "ada@example.com", "wrong")
	apiErr, isAPI := client.AsAPIError(err)
	require.True(t, isAPI)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Detail)
	assert.False(t, svc.IsAuthenticated(ctx))

	require.NoError(t, svc.SignIn(ctx, "ada@example.com", "right"))
	assert.Equal(t, client.TokenPair{Access: "a1", Refresh: "r1"}, tokens.Tokens())
	assert.True(t, svc.IsAuthenticated(ctx))
}

func TestAuthService_SignInRequiresCredentials(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t, http.NewServeMux(), client.TokenPair{})
	svc := NewAuthService(api, discardLogger())

	err := svc.SignIn(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid_input", FailureReason(err))
}

func TestAuthService_VerifyAccount(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/signup-complete/", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "123456", body["otp_code"])
		ok(w, map[string]any{
			"token":         "legacy-access",
			"refresh":       "r1",
			"external_id":   "u-1",
			"email_address": "ada@example.com",
			"first_name":    "Ada",
			"user_type":     "OWNER",
			"is_active":     true,
			"owner":         "someone",
		})
	})
	api, tokens := newTestAPI(t, mux, client.TokenPair{})
	svc := NewAuthService(api, discardLogger())

	user, err := svc.VerifyAccount(context.Background(), "ada@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ExternalID)
	assert.True(t, user.IsOwner())
	assert.Nil(t, user.Owner, "only public fields are returned")
	assert.Equal(t, client.TokenPair{Access: "legacy-access", Refresh: "r1"}, tokens.Tokens())
}

func TestAuthService_VerifyAccountEmptyPayload(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/signup-complete/", func(w http.ResponseWriter, r *http.Request) {
		ok(w, nil)
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{})
	svc := NewAuthService(api, discardLogger())

	_, err := svc.VerifyAccount(context.Background(), "ada@example.com", "1")
	var re *ResponseError
	require.ErrorAs(t, err, &re)
}

func TestAuthService_PasswordReset(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/reset-password/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ada@example.com", decodeBody(t, r)["email_address"])
		ok(w, nil)
	})
	mux.HandleFunc("/api/users/reset-password-complete/", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "999999", body["otp_code"])
		assert.Equal(t, "new-pw", body["password"])
		ok(w, "Password updated")
	})
	mux.HandleFunc("/api/users/resend-signup-otp/", func(w http.ResponseWriter, r *http.Request) {
		ok(w, "sent")
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{})
	svc := NewAuthService(api, discardLogger())
	ctx := context.Background()

	msg, err := svc.ForgotPassword(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Password reset OTP sent successfully", msg)

	msg, err = svc.ResetPassword(ctx, "ada@example.com", "999999", "new-pw")
	require.NoError(t, err)
	assert.Equal(t, "Password updated", msg)

	msg, err = svc.ResendOTP(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sent", msg)
}

func TestAuthService_SignOutAlwaysClearsTokens(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusInternalServerError)
	})
	api, tokens := newTestAPI(t, mux, client.TokenPair{Access: "a1", Refresh: "r1"})
	svc := NewAuthService(api, discardLogger())

	require.NoError(t, svc.SignOut(context.Background()))
	assert.Equal(t, client.TokenPair{}, tokens.Tokens())
}

func TestAuthService_CurrentUser(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/from-auth/", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{
			"external_id":   "u-1",
			"email_address": "ada@example.com",
			"first_name":    "Ada",
			"last_name":     "Lovelace",
			"teams":         []map[string]string{{"name": "Sales", "created_by": "u-1"}},
		})
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{Access: "a1"})
	svc := NewAuthService(api, discardLogger())

	user, err := svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.DisplayName())
	require.Len(t, user.Teams, 1)
	assert.Equal(t, "Sales", user.Teams[0].Name)
}

func TestFailureReason(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", FailureReason(nil))
	assert.Equal(t, "invalid_input", FailureReason(ErrMissingCode))
	assert.Equal(t, "internal", FailureReason(errors.New("boom")))
	assert.Equal(t, "business", FailureReason(&client.APIError{StatusCode: http.StatusNotFound}))
	assert.Equal(t, "transient", FailureReason(&client.APIError{StatusCode: http.StatusServiceUnavailable}))
}
