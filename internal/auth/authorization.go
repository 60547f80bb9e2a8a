package auth

import (
	"context"
	"errors"
	"time"
)

var ErrUnauthorized = errors.New("unauthorized")

// UserContext contains the signed-in user as read from the access token
type UserContext struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// contextKey is the key for storing user info in context
type contextKey string

const userContextKey contextKey = "user"

// GetUserFromContext extracts the authenticated user from the context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// SetUserInContext stores the authenticated user in the context
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// User returns the signed-in user the claims describe
func (c *Claims) User() *UserContext {
	user := &UserContext{UserID: c.UserID, Email: c.Email}
	if c.ExpiresAt != nil {
		user.ExpiresAt = c.ExpiresAt.Time
	}
	return user
}

// UserFromToken builds a UserContext from a live access token. Expired
// tokens are rejected with ErrExpiredToken.
func UserFromToken(token string) (*UserContext, error) {
	claims, err := ParseUnverified(token)
	if err != nil {
		return nil, err
	}
	return claims.User(), nil
}

// Team roles as issued by the API.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// ValidTeamRole reports whether role is a known team role.
func ValidTeamRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
