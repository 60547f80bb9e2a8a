package config

import (
	"time"
)

// Environment selects logging and error-reporting behaviour.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

// IsProduction reports whether failures go to the error-tracking sink
// instead of verbose request logs.
func (e Environment) IsProduction() bool {
	return e == Production
}

// Config represents the shared application configuration
type Config struct {
	Environment Environment   `yaml:"environment" default:"development"` // development, test, production
	API         APIConfig     `yaml:"api"`
	OAuth       OAuthConfig   `yaml:"oauth"`
	Logging     LoggingConfig `yaml:"logging"`
}

// APIConfig holds the remote API connection and request pipeline settings
type APIConfig struct {
	BaseURL       string          `yaml:"base_url" default:"http://localhost:8000/api/"`
	Timeout       time.Duration   `yaml:"timeout" default:"30s"`
	AuthEndpoints []string        `yaml:"auth_endpoints"`                 // Paths sent without a bearer token and never refreshed
	SlowThreshold time.Duration   `yaml:"slow_threshold" default:"1s"`    // Successful requests slower than this log a warning
	DownloadDir   string          `yaml:"download_dir" default:"."`       // Where Download saves files
	UserAgent     string          `yaml:"user_agent" default:"salesdesk"` // Sent on every request
	Retry         RetryConfig     `yaml:"retry"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// RetryConfig holds the backoff policy for transient failures
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries" default:"2"`
	BaseDelay   time.Duration `yaml:"base_delay" default:"1s"` // Delay before retry n is BaseDelay * 2^n
	StatusCodes []int         `yaml:"status_codes"`            // Defaults to 408, 503, 504
}

// RateLimitConfig holds the optional outbound rate limit
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 disables limiting
	Burst             int     `yaml:"burst" default:"1"`
}

// OAuthConfig holds social sign-in configuration
type OAuthConfig struct {
	AppURL    string           `yaml:"app_url" default:"http://localhost:8080"` // Public URL of the web app, used for redirect URIs
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds one OAuth provider's client registration
type ProviderConfig struct {
	Name         string   `yaml:"name"`                // "google", "linkedin" or "microsoft"
	ClientID     string   `yaml:"client_id"`           // OAuth client ID (required)
	ClientSecret string   `yaml:"client_secret"`       // Only needed if the web app exchanges codes itself
	Tenant       string   `yaml:"tenant,omitempty"`    // Microsoft tenant, defaults to "common"
	Scopes       []string `yaml:"scopes,omitempty"`    // Overrides the provider default scopes
	AuthURL      string   `yaml:"auth_url,omitempty"`  // Overrides the provider authorization endpoint
	TokenURL     string   `yaml:"token_url,omitempty"` // Overrides the provider token endpoint
	PKCE         bool     `yaml:"pkce"`                // Send a code challenge; the verifier is forwarded to the API
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`  // Log level: debug, info, warn, error
	Format string `yaml:"format" default:"json"` // Log format: json, text
}

// DefaultAuthEndpoints are the remote paths that must work without a session.
var DefaultAuthEndpoints = []string{
	"users/auth/login/",
	"users/signup/",
	"users/auth/refresh/",
}

// DefaultRetryStatusCodes are the transformed statuses treated as transient.
var DefaultRetryStatusCodes = []int{408, 503, 504}
