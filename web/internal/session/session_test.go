package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager([]byte("0123456789abcdef0123456789abcdef"), Options{
		AccessMaxAge:  24 * time.Hour,
		RefreshMaxAge: 7 * 24 * time.Hour,
		OAuthMaxAge:   10 * time.Minute,
		Secure:        true,
	})
	require.NoError(t, err)
	return m
}

// carryCookies builds a follow-up request that presents the cookies set on rec.
func carryCookies(rec *httptest.ResponseRecorder) *http.Request {
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			next.AddCookie(c)
		}
	}
	return next
}

func testToken(claims jwt.MapClaims) string {
	s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SigningString()
	return s + ".fake_signature"
}

func TestNewManager_ShortSecret(t *testing.T) {
	_, err := NewManager([]byte("short"), Options{})
	assert.Error(t, err)
}

func TestCookieTokenStore_RoundTrip(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	store := NewCookieTokenStore(m, httptest.NewRequest(http.MethodGet, "/", nil), rec)
	const accessToken = "access-token-plaintext-marker"
	require.NoError(t, store.SetTokens(ctx, client.TokenPair{Access: accessToken, Refresh: "r1"}))

	access, _ := store.AccessToken(ctx)
	assert.Equal(t, accessToken, access)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, AccessCookie)
	require.Contains(t, cookies, RefreshCookie)
	assert.Equal(t, 24*60*60, cookies[AccessCookie].MaxAge)
	assert.Equal(t, 7*24*60*60, cookies[RefreshCookie].MaxAge)
	assert.True(t, cookies[AccessCookie].HttpOnly)
	assert.True(t, cookies[AccessCookie].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookies[AccessCookie].SameSite)
	assert.NotContains(t, cookies[AccessCookie].Value, accessToken, "cookie value is encrypted")

	next := carryCookies(rec)
	assert.Equal(t, accessToken, m.AccessToken(next))
	assert.Equal(t, "r1", m.RefreshToken(next))
	assert.True(t, m.HasToken(next))
}

func TestCookieTokenStore_LargeToken(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	large := testToken(jwt.MapClaims{"user_id": "u1", "scope": strings.Repeat("x", 5000)})
	require.Greater(t, len(large), 5000)

	rec := httptest.NewRecorder()
	store := NewCookieTokenStore(m, httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, store.SetTokens(ctx, client.TokenPair{Access: large, Refresh: "r1"}))

	next := carryCookies(rec)
	assert.Equal(t, large, m.AccessToken(next))
	assert.Equal(t, "r1", m.RefreshToken(next))
}

func TestCookieTokenStore_KeepsRefreshWhenNotRotated(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	require.NoError(t, NewCookieTokenStore(m, httptest.NewRequest(http.MethodGet, "/", nil), rec).
		SetTokens(ctx, client.TokenPair{Access: "a1", Refresh: "r1"}))

	rec2 := httptest.NewRecorder()
	store := NewCookieTokenStore(m, carryCookies(rec), rec2)
	require.NoError(t, store.SetTokens(ctx, client.TokenPair{Access: "a2"}))

	refresh, _ := store.RefreshToken(ctx)
	assert.Equal(t, "r1", refresh)
	for _, c := range rec2.Result().Cookies() {
		assert.NotEqual(t, RefreshCookie, c.Name, "refresh cookie rewritten without a new token")
	}
}

func TestCookieTokenStore_Clear(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	require.NoError(t, NewCookieTokenStore(m, httptest.NewRequest(http.MethodGet, "/", nil), rec).
		SetTokens(ctx, client.TokenPair{Access: "a1", Refresh: "r1"}))

	rec2 := httptest.NewRecorder()
	store := NewCookieTokenStore(m, carryCookies(rec), rec2)
	require.NoError(t, store.ClearTokens(ctx))

	access, _ := store.AccessToken(ctx)
	assert.Empty(t, access)
	expired := 0
	for _, c := range rec2.Result().Cookies() {
		if c.MaxAge < 0 {
			expired++
		}
	}
	assert.Equal(t, 2, expired)
}

func TestManager_TamperedCookieIgnored(t *testing.T) {
	m := testManager(t)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "forged"})
	assert.Empty(t, m.AccessToken(r))
	assert.False(t, m.HasToken(r))
}

func TestManager_User(t *testing.T) {
	m := testManager(t)
	token := testToken(jwt.MapClaims{
		"user_id": "u-9",
		"email":   "ada@example.com",
		"exp":     float64(time.Now().Add(-time.Minute).Unix()),
	})

	rec := httptest.NewRecorder()
	require.NoError(t, NewCookieTokenStore(m, httptest.NewRequest(http.MethodGet, "/", nil), rec).
		SetTokens(context.Background(), client.TokenPair{Access: token}))

	user, err := m.User(carryCookies(rec))
	require.NoError(t, err, "expired tokens still identify the user")
	assert.Equal(t, "u-9", user.UserID)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = m.User(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)
}

func TestManager_OAuthAttempt(t *testing.T) {
	m := testManager(t)
	attempt := &entities.OAuthAttempt{
		Provider:     "google",
		State:        "st",
		CodeVerifier: "verifier-plaintext-marker",
		RedirectURI:  "https://app.example.com/api/auth/callback/google",
		ExpiresAt:    time.Now().Add(time.Minute),
	}

	rec := httptest.NewRecorder()
	require.NoError(t, m.SaveOAuthAttempt(httptest.NewRequest(http.MethodGet, "/", nil), rec, attempt))
	for _, c := range rec.Result().Cookies() {
		assert.False(t, strings.Contains(c.Value, "verifier-plaintext-marker"))
	}

	got := m.OAuthAttempt(carryCookies(rec))
	require.NotNil(t, got)
	assert.True(t, got.Matches("google", "st"))
	assert.Equal(t, "verifier-plaintext-marker", got.CodeVerifier)
	assert.False(t, got.IsExpired())

	assert.Nil(t, m.OAuthAttempt(httptest.NewRequest(http.MethodGet, "/", nil)))
}
