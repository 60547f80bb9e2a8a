package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/domain/services"
	"github.com/devilmonastery/salesdesk/internal/pkg/urlutil"
)

// DashboardPath is where a completed sign-in lands
const DashboardPath = "/dashboard"

// Providers lists the configured social sign-in providers
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	type provider struct {
		Name     string `json:"name"`
		LoginURL string `json:"login_url"`
	}
	returnTo := safeReturnTo(r.URL.Query().Get("return_to"))
	out := []provider{}
	for _, name := range h.providers.List() {
		out = append(out, provider{Name: name, LoginURL: urlutil.LoginPath(name, returnTo)})
	}
	writeJSON(w, http.StatusOK, out)
}

// OAuthLogin starts a social sign-in and redirects to the provider
func (h *Handler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["provider"]
	provider, err := h.providers.Get(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unsupported provider"})
		return
	}

	attempt := &entities.OAuthAttempt{
		Provider:    name,
		State:       auth.NewState(),
		RedirectURI: provider.OAuth2.RedirectURL,
		ReturnTo:    safeReturnTo(r.URL.Query().Get("return_to")),
		ExpiresAt:   h.now().Add(h.oauthMaxAge),
	}
	if provider.PKCE {
		attempt.CodeVerifier = auth.NewVerifier()
	}
	if err := h.sessionManager.SaveOAuthAttempt(r, w, attempt); err != nil {
		h.log.Error("failed to save oauth attempt", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}

	h.log.Debug("starting social sign-in", slog.String("provider", name))
	http.Redirect(w, r, provider.AuthCodeURL(attempt.State, attempt.CodeVerifier), http.StatusFound)
}

// OAuthCallback completes a social sign-in started by OAuthLogin or by the
// front-end. When this app started the attempt, the state must match.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request, s *requestScope) {
	name := mux.Vars(r)["provider"]
	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")

	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing code"})
		return
	}
	if state == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing state"})
		return
	}
	if _, err := auth.BackendProviderName(name); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unsupported provider"})
		return
	}

	req := services.CallbackRequest{
		Provider:    name,
		Code:        code,
		State:       state,
		RedirectURI: auth.RedirectURI(h.appURL, name),
	}
	returnTo := DashboardPath
	if attempt := h.sessionManager.OAuthAttempt(r); attempt != nil {
		if !attempt.Matches(name, state) || attempt.IsExpired() {
			h.log.Warn("oauth state mismatch", slog.String("provider", name))
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid state"})
			return
		}
		req.RedirectURI = attempt.RedirectURI
		req.CodeVerifier = attempt.CodeVerifier
		if attempt.ReturnTo != "" {
			returnTo = attempt.ReturnTo
		}
		if err := h.sessionManager.ClearOAuthAttempt(r, w); err != nil {
			h.log.Warn("failed to clear oauth attempt", slog.String("error", err.Error()))
		}
	}

	if _, err := services.NewOAuthService(s.api, h.log).CompleteCallback(r.Context(), req); err != nil {
		h.log.Error("oauth callback failed",
			slog.String("provider", name),
			slog.String("reason", services.FailureReason(err)),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}

	target, err := urlutil.AppURL(h.appURL, returnTo, nil)
	if err != nil {
		target = returnTo
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// safeReturnTo only allows local paths
func safeReturnTo(p string) string {
	if !urlutil.IsLocalPath(p) {
		return ""
	}
	return p
}

type credentialsRequest struct {
	Email    string `json:"email_address"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code"`
}

// SignUp creates an account
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var req entities.SignUpRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, s, err)
		return
	}
	result, err := services.NewAuthService(s.api, h.log).SignUp(r.Context(), req)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// VerifyAccount completes sign-up and signs the user in
func (h *Handler) VerifyAccount(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, s, err)
		return
	}
	user, err := services.NewAuthService(s.api, h.log).VerifyAccount(r.Context(), req.Email, req.OTPCode)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ResendOTP sends a new sign-up OTP
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, s, err)
		return
	}
	msg, err := services.NewAuthService(s.api, h.log).ResendOTP(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// Login signs in with email and password
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, s, err)
		return
	}
	if err := services.NewAuthService(s.api, h.log).SignIn(r.Context(), req.Email, req.Password); err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Signed in"})
}

// ForgotPassword sends a password reset OTP
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, s, err)
		return
	}
	msg, err := services.NewAuthService(s.api, h.log).ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// ResetPassword completes a password reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, s, err)
		return
	}
	msg, err := services.NewAuthService(s.api, h.log).ResetPassword(r.Context(), req.Email, req.OTPCode, req.Password)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// Logout ends the session. Cookies are cleared even if the API call fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, s *requestScope) {
	if err := services.NewAuthService(s.api, h.log).SignOut(r.Context()); err != nil {
		h.log.Error("error clearing session", slog.String("error", err.Error()))
	}
	if r.Method == http.MethodGet {
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Signed out"})
}
