package session

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
)

const (
	// AccessCookie holds the API access token
	AccessCookie = "salesdesk_access"

	// RefreshCookie holds the API refresh token
	RefreshCookie = "salesdesk_refresh"

	// OAuthCookie holds an in-progress social sign-in
	OAuthCookie = "salesdesk_oauth"

	maxCookieLength = 16384

	tokenKey   = "token"
	attemptKey = "attempt"
)

// Options configures cookie lifetimes and transport security
type Options struct {
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	OAuthMaxAge   time.Duration
	Secure        bool // set in production, cookies only travel over HTTPS
}

// Manager wraps gorilla/sessions for our use case. Each token lives in its
// own encrypted cookie so the two can expire independently.
type Manager struct {
	store *sessions.CookieStore
	opts  Options
}

// NewManager creates a new session manager. The cookie signing and
// encryption keys are derived from secret.
func NewManager(secret []byte, opts Options) (*Manager, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 bytes")
	}
	hashKey, blockKey, err := deriveKeys(secret)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	// The default 4096 limit counts the doubly encoded value, which a
	// token with a large claim set overruns.
	for _, codec := range store.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxLength(maxCookieLength)
		}
	}

	return &Manager{store: store, opts: opts}, nil
}

// deriveKeys splits one secret into an HMAC key and an AES-256 key.
func deriveKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	r := hkdf.New(sha256.New, secret, nil, []byte("salesdesk session cookies"))
	keys := make([]byte, 64)
	if _, err := io.ReadFull(r, keys); err != nil {
		return nil, nil, fmt.Errorf("derive session keys: %w", err)
	}
	return keys[:32], keys[32:], nil
}

func (m *Manager) get(r *http.Request, name string) *sessions.Session {
	session, err := m.store.Get(r, name)
	if err != nil {
		// Undecodable cookie (rotated secret, tampering): start over
		session, _ = m.store.New(r, name)
	}
	return session
}

func (m *Manager) getString(r *http.Request, name, key string) string {
	s, _ := m.get(r, name).Values[key].(string)
	return s
}

func (m *Manager) save(r *http.Request, w http.ResponseWriter, name, key, value string, maxAge time.Duration) error {
	session := m.get(r, name)
	session.Options.MaxAge = int(maxAge.Seconds())
	session.Values[key] = value
	return session.Save(r, w)
}

func (m *Manager) clear(r *http.Request, w http.ResponseWriter, name string) error {
	session := m.get(r, name)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// AccessToken returns the stored access token, or "".
func (m *Manager) AccessToken(r *http.Request) string {
	return m.getString(r, AccessCookie, tokenKey)
}

// RefreshToken returns the stored refresh token, or "".
func (m *Manager) RefreshToken(r *http.Request) string {
	return m.getString(r, RefreshCookie, tokenKey)
}

// HasToken checks if either token is present. A session with only a refresh
// token can still be resumed by the request pipeline.
func (m *Manager) HasToken(r *http.Request) bool {
	return m.AccessToken(r) != "" || m.RefreshToken(r) != ""
}

// User returns the user described by the stored access token. The token is
// decoded, not verified; expired tokens still identify the user.
func (m *Manager) User(r *http.Request) (*auth.UserContext, error) {
	claims, err := auth.ParseUnverified(m.AccessToken(r))
	if claims == nil {
		return nil, err
	}
	return claims.User(), nil
}

// SaveOAuthAttempt remembers a social sign-in until its callback arrives
func (m *Manager) SaveOAuthAttempt(r *http.Request, w http.ResponseWriter, attempt *entities.OAuthAttempt) error {
	data, err := json.Marshal(oauthCookie{OAuthAttempt: *attempt, CodeVerifier: attempt.CodeVerifier})
	if err != nil {
		return err
	}
	return m.save(r, w, OAuthCookie, attemptKey, string(data), m.opts.OAuthMaxAge)
}

// OAuthAttempt returns the pending social sign-in, or nil.
func (m *Manager) OAuthAttempt(r *http.Request) *entities.OAuthAttempt {
	raw := m.getString(r, OAuthCookie, attemptKey)
	if raw == "" {
		return nil
	}
	var c oauthCookie
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil
	}
	attempt := c.OAuthAttempt
	attempt.CodeVerifier = c.CodeVerifier
	return &attempt
}

// ClearOAuthAttempt drops the pending social sign-in
func (m *Manager) ClearOAuthAttempt(r *http.Request, w http.ResponseWriter) error {
	return m.clear(r, w, OAuthCookie)
}

// oauthCookie carries the verifier the entity hides from JSON. The cookie
// itself is encrypted.
type oauthCookie struct {
	entities.OAuthAttempt
	CodeVerifier string `json:"code_verifier,omitempty"`
}
