package middleware

import (
	"log/slog"
	"net/http"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/web/internal/session"
)

// AuthMiddleware handles authentication checks for requests.
// Token refresh is handled by the per-request pipeline clients.
type AuthMiddleware struct {
	sessionManager *session.Manager
	loginPath      string
	log            *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(sessionManager *session.Manager, loginPath string, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{
		sessionManager: sessionManager,
		loginPath:      loginPath,
		log:            log.With(slog.String("component", "auth_middleware")),
	}
}

// RequireAuth is middleware that ensures the request carries a session.
// The user decoded from the access token, if any, is put in the context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.sessionManager.HasToken(r) {
			m.log.Debug("no token found in session, redirecting to login", slog.String("path", r.URL.Path))
			http.Redirect(w, r, m.loginPath, http.StatusSeeOther)
			return
		}

		if user, err := m.sessionManager.User(r); err == nil {
			ctx := auth.SetUserInContext(r.Context(), user)
			// Let the outer request logger see the user
			if holder, ok := r.Context().Value(userHolderKey).(*userHolder); ok {
				holder.user = user
			}
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}
