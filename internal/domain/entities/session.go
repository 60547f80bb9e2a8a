package entities

import "time"

// OAuthAttempt is a social sign-in started by this app and not yet completed
type OAuthAttempt struct {
	Provider     string    `json:"provider"`
	State        string    `json:"state"`
	CodeVerifier string    `json:"-"` // PKCE, never serialize to JSON
	RedirectURI  string    `json:"redirect_uri"`
	ReturnTo     string    `json:"return_to,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired returns true if the attempt is too old to complete
func (a *OAuthAttempt) IsExpired() bool {
	return time.Now().After(a.ExpiresAt)
}

// Matches returns true if the callback belongs to this attempt
func (a *OAuthAttempt) Matches(provider, state string) bool {
	return a.Provider == provider && a.State == state
}
