package client

import (
	"context"
	"sync"
)

// TokenManager is an interface for managing authentication tokens
// Different implementations can store tokens in encrypted cookies, files, memory, etc.
// A missing token is reported as an empty string, not an error.
type TokenManager interface {
	// AccessToken returns the current access token
	AccessToken(ctx context.Context) (string, error)

	// RefreshToken returns the token used to obtain a new access token
	RefreshToken(ctx context.Context) (string, error)

	// SetTokens replaces both tokens
	SetTokens(ctx context.Context, pair TokenPair) error

	// ClearTokens removes stored credentials
	ClearTokens(ctx context.Context) error
}

// MemoryTokenManager keeps tokens in process memory.
type MemoryTokenManager struct {
	mu   sync.RWMutex
	pair TokenPair
}

// NewMemoryTokenManager returns a MemoryTokenManager seeded with pair.
func NewMemoryTokenManager(pair TokenPair) *MemoryTokenManager {
	return &MemoryTokenManager{pair: pair}
}

func (m *MemoryTokenManager) AccessToken(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.Access, nil
}

func (m *MemoryTokenManager) RefreshToken(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.Refresh, nil
}

func (m *MemoryTokenManager) SetTokens(_ context.Context, pair TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair
	return nil
}

func (m *MemoryTokenManager) ClearTokens(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = TokenPair{}
	return nil
}

// Tokens returns a copy of the stored pair.
func (m *MemoryTokenManager) Tokens() TokenPair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair
}
