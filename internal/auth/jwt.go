package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the fields of an API access token this side reads. Tokens are
// verified by the API; they are only decoded here.
type Claims struct {
	UserID    string `json:"-"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims

	RawUserID json.RawMessage `json:"user_id,omitempty"`
}

// ParseUnverified decodes tokenString without checking its signature. It
// returns ErrExpiredToken (with the claims) when exp is in the past.
func ParseUnverified(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims.UserID = userIDString(claims.RawUserID)

	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return claims, ErrExpiredToken
	}
	return claims, nil
}

// ExpiresAt returns the token expiry, or the zero time when it cannot be read.
func ExpiresAt(tokenString string) time.Time {
	claims, err := ParseUnverified(tokenString)
	if claims == nil || (err != nil && !errors.Is(err, ErrExpiredToken)) || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// IsExpired reports whether the token is expired or unreadable. Tokens
// without an exp claim are treated as live; the API rejects them if not.
func IsExpired(tokenString string) bool {
	_, err := ParseUnverified(tokenString)
	return err != nil
}

// user_id is numeric for some deployments and a UUID string for others.
func userIDString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
