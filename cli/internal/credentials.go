package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/client"
)

// Credentials stores the authentication credentials
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired checks if the access token is expired
func (c *Credentials) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// errNotLoggedIn is returned when no credentials file exists
var errNotLoggedIn = errors.New("not logged in")

// FileTokenStore implements client.TokenManager on a credentials file.
// Missing files read as empty tokens so auth endpoints still work.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

var _ client.TokenManager = (*FileTokenStore)(nil)

// NewFileTokenStore creates a token store backed by path
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// CredentialsPath returns the credentials file for a context
func CredentialsPath(contextName string) (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("credentials-%s.json", contextName)), nil
}

// AccessToken returns the stored access token
func (f *FileTokenStore) AccessToken(context.Context) (string, error) {
	creds, err := f.Load()
	if errors.Is(err, errNotLoggedIn) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// RefreshToken returns the stored refresh token
func (f *FileTokenStore) RefreshToken(context.Context) (string, error) {
	creds, err := f.Load()
	if errors.Is(err, errNotLoggedIn) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return creds.RefreshToken, nil
}

// SetTokens saves a new token pair. An empty refresh token keeps the stored one.
func (f *FileTokenStore) SetTokens(_ context.Context, pair client.TokenPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.load()
	if err != nil {
		creds = &Credentials{}
	}

	creds.AccessToken = pair.Access
	if pair.Refresh != "" {
		creds.RefreshToken = pair.Refresh
	}
	creds.ExpiresAt, creds.UserID, creds.Email = time.Time{}, "", ""
	claims, err := auth.ParseUnverified(pair.Access)
	if claims != nil {
		creds.UserID, creds.Email = claims.UserID, claims.Email
		if claims.ExpiresAt != nil {
			creds.ExpiresAt = claims.ExpiresAt.Time
		}
	} else {
		slog.Debug("access token is not a readable JWT",
			slog.String("component", "cli-token"),
			slog.String("error", err.Error()))
	}

	return f.save(creds)
}

// ClearTokens removes the credentials file
func (f *FileTokenStore) ClearTokens(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// Load reads the credentials file
func (f *FileTokenStore) Load() (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileTokenStore) load() (*Credentials, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

func (f *FileTokenStore) save(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// Write with restricted permissions (read/write for owner only)
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
