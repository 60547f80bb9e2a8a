package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Middleware wraps the routes that need a signed-in session
type Middleware func(http.Handler) http.Handler

// Register mounts every route on router
func (h *Handler) Register(router *mux.Router, requireAuth Middleware) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Social sign-in
	router.HandleFunc("/auth/providers", h.Providers).Methods(http.MethodGet)
	router.HandleFunc("/auth/login/{provider}", h.OAuthLogin).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/callback/{provider}", h.withScope(h.OAuthCallback)).Methods(http.MethodGet)

	// Account workflows (no session required)
	public := router.PathPrefix("/api/auth").Subrouter()
	public.HandleFunc("/signup", h.withScope(h.SignUp)).Methods(http.MethodPost)
	public.HandleFunc("/verify", h.withScope(h.VerifyAccount)).Methods(http.MethodPost)
	public.HandleFunc("/resend-otp", h.withScope(h.ResendOTP)).Methods(http.MethodPost)
	public.HandleFunc("/login", h.withScope(h.Login)).Methods(http.MethodPost)
	public.HandleFunc("/forgot-password", h.withScope(h.ForgotPassword)).Methods(http.MethodPost)
	public.HandleFunc("/reset-password", h.withScope(h.ResetPassword)).Methods(http.MethodPost)
	public.HandleFunc("/logout", h.withScope(h.Logout)).Methods(http.MethodPost, http.MethodGet)

	// Session-backed API
	api := router.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(requireAuth))
	api.HandleFunc("/me", h.withScope(h.Me)).Methods(http.MethodGet)
	api.HandleFunc("/me", h.withScope(h.UpdateMe)).Methods(http.MethodPatch)
	api.HandleFunc("/me/avatar", h.withScope(h.UploadAvatar)).Methods(http.MethodPost)
	api.HandleFunc("/teams", h.withScope(h.Teams)).Methods(http.MethodGet)
	api.HandleFunc("/teams", h.withScope(h.CreateTeam)).Methods(http.MethodPost)
	api.HandleFunc("/teams/{id}/invites", h.withScope(h.Invites)).Methods(http.MethodGet)
	api.HandleFunc("/teams/{id}/invites", h.withScope(h.CreateInvite)).Methods(http.MethodPost)
	api.HandleFunc("/dashboard", h.withScope(h.Dashboard)).Methods(http.MethodGet)
	api.HandleFunc("/tasks", h.withScope(h.Tasks)).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.withScope(h.Task)).Methods(http.MethodGet)
	api.HandleFunc("/contact-events", h.withScope(h.ContactEvents)).Methods(http.MethodGet)
}
