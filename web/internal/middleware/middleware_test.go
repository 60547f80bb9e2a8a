package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/pkg/logger"
	"github.com/devilmonastery/salesdesk/web/internal/session"
)

func testManager(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), session.Options{
		AccessMaxAge:  time.Hour,
		RefreshMaxAge: 24 * time.Hour,
		OAuthMaxAge:   10 * time.Minute,
	})
	require.NoError(t, err)
	return m
}

// signedInRequest returns a request carrying session cookies for email.
func signedInRequest(t *testing.T, m *session.Manager, path, email string) *http.Request {
	t.Helper()
	s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"email":   email,
		"exp":     float64(time.Now().Add(time.Hour).Unix()),
	}).SigningString()

	rec := httptest.NewRecorder()
	store := session.NewCookieTokenStore(m, httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, store.SetTokens(context.Background(), client.TokenPair{Access: s + ".sig", Refresh: "r"}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestRequireAuth_RedirectsWithoutSession(t *testing.T) {
	t.Parallel()
	mw := NewAuthMiddleware(testManager(t), "/login", logger.Discard())

	called := false
	h := mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireAuth_SetsUser(t *testing.T) {
	t.Parallel()
	m := testManager(t)
	mw := NewAuthMiddleware(m, "/login", logger.Discard())

	var got *auth.UserContext
	h := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedInRequest(t, m, "/api/me", "rep@example.com"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "rep@example.com", got.Email)
}

func TestLogRequest(t *testing.T) {
	t.Parallel()
	m := testManager(t)
	mw := NewAuthMiddleware(m, "/login", logger.Discard())

	router := mux.NewRouter()
	router.Handle("/api/tasks/{id}", mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})))

	var out bytes.Buffer
	h := LogRequest(&out)(router)

	req := signedInRequest(t, m, "/api/tasks/42?x=1", "rep@example.com")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/tasks/42", entry["path"])
	assert.Equal(t, "/api/tasks/:id", entry["route"])
	assert.Equal(t, rec.Header().Get(HeaderRequestID), entry["request_id"])
	assert.NotEmpty(t, entry["request_id"])
	assert.Equal(t, "x=1", entry["query"])
	assert.EqualValues(t, 404, entry["status"])
	assert.EqualValues(t, len("missing"), entry["bytes"])
	assert.Equal(t, "203.0.113.9", entry["client_ip"])
	assert.Equal(t, "rep@example.com", entry["user_email"])
	assert.Equal(t, true, entry["error"])
}

func TestLogRequest_RedactsOAuthQuery(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	h := LogRequest(&out)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback/google?code=4/0AbC&state=s-1&scope=email", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "req-7", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "192.0.2.1", entry["client_ip"])
	query, _ := entry["query"].(string)
	assert.NotContains(t, query, "0AbC")
	assert.NotContains(t, query, "s-1")
	assert.Contains(t, query, "scope=email")
	assert.NotContains(t, entry, "error")
}

func TestLogRequest_SkipsHealth(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	h := LogRequest(&out)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, out.Len())
}
