package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/devilmonastery/salesdesk/internal/client"
)

// CookieTokenStore implements client.TokenManager on the session cookies of
// one request. Create one per request; it must not outlive the handler.
type CookieTokenStore struct {
	manager *Manager
	request *http.Request
	writer  http.ResponseWriter

	// Concurrent pipeline calls within one handler share the request and
	// its session registry.
	mu      sync.Mutex
	loaded  bool
	access  string
	refresh string
}

// NewCookieTokenStore creates a token store bound to a request/response pair
func NewCookieTokenStore(manager *Manager, r *http.Request, w http.ResponseWriter) *CookieTokenStore {
	return &CookieTokenStore{
		manager: manager,
		request: r,
		writer:  w,
	}
}

var _ client.TokenManager = (*CookieTokenStore)(nil)

func (s *CookieTokenStore) load() {
	if s.loaded {
		return
	}
	s.access = s.manager.AccessToken(s.request)
	s.refresh = s.manager.RefreshToken(s.request)
	s.loaded = true
}

// AccessToken returns the current access token from the cookie
func (s *CookieTokenStore) AccessToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return s.access, nil
}

// RefreshToken returns the current refresh token from the cookie
func (s *CookieTokenStore) RefreshToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return s.refresh, nil
}

// SetTokens writes both cookies. An empty refresh token leaves the
// refresh cookie untouched.
func (s *CookieTokenStore) SetTokens(_ context.Context, pair client.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	if err := s.manager.save(s.request, s.writer, AccessCookie, tokenKey, pair.Access, s.manager.opts.AccessMaxAge); err != nil {
		return err
	}
	s.access = pair.Access
	if pair.Refresh != "" {
		if err := s.manager.save(s.request, s.writer, RefreshCookie, tokenKey, pair.Refresh, s.manager.opts.RefreshMaxAge); err != nil {
			return err
		}
		s.refresh = pair.Refresh
	}
	return nil
}

// ClearTokens expires both cookies
func (s *CookieTokenStore) ClearTokens(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.access, s.refresh = "", ""
	err := s.manager.clear(s.request, s.writer, AccessCookie)
	if rerr := s.manager.clear(s.request, s.writer, RefreshCookie); err == nil {
		err = rerr
	}
	return err
}
