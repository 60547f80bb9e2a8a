package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// ExpandEnvVars expands environment variables in the format ${VAR} or $VAR
func ExpandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// DefaultConfigPaths defines the default locations to search for configuration files
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./configs/config.yaml",
	"./configs/config.yml",
	"./configs/development.yaml",
	"/etc/salesdesk/config.yaml",
	"/etc/salesdesk/config.yml",
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		Environment: Development,
		API: APIConfig{
			BaseURL:       "http://localhost:8000/api/",
			Timeout:       30 * time.Second,
			AuthEndpoints: append([]string(nil), DefaultAuthEndpoints...),
			SlowThreshold: time.Second,
			DownloadDir:   ".",
			UserAgent:     "salesdesk",
			Retry: RetryConfig{
				MaxRetries:  2,
				BaseDelay:   time.Second,
				StatusCodes: append([]int(nil), DefaultRetryStatusCodes...),
			},
			RateLimit: RateLimitConfig{
				Burst: 1,
			},
		},
		OAuth: OAuthConfig{
			AppURL: "http://localhost:8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads the configuration from the specified file or default locations
func Load(configPath string) (*Config, error) {
	config := Default()

	// If no config path is provided, search in default locations
	if configPath == "" {
		configPath = FindConfigFile(DefaultConfigPaths)
	}

	if configPath != "" && FileExists(configPath) {
		slog.Info("loading config", slog.String("path", configPath))
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(ExpandEnvVars(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		slog.Info("no config file found, using defaults")
	}

	ApplyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ApplyEnvOverrides lets environment variables take precedence over the file
func ApplyEnvOverrides(config *Config) {
	if v := os.Getenv("SALESDESK_ENV"); v != "" {
		config.Environment = Environment(v)
	}
	if v := os.Getenv("SALESDESK_API_URL"); v != "" {
		config.API.BaseURL = v
	}
	if v := os.Getenv("SALESDESK_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.API.Timeout = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			config.API.Timeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("SALESDESK_APP_URL"); v != "" {
		config.OAuth.AppURL = v
	}
	if v := os.Getenv("SALESDESK_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// FindConfigFile returns the first existing path in paths
func FindConfigFile(paths []string) string {
	for _, path := range paths {
		if FileExists(path) {
			return path
		}
	}
	return ""
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// Validate performs basic validation on the configuration
func Validate(config *Config) error {
	switch config.Environment {
	case Development, Test, Production:
	default:
		return fmt.Errorf("environment must be one of development, test, production (got %q)", config.Environment)
	}

	u, err := url.Parse(config.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL (got %q)", config.API.BaseURL)
	}
	if config.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if config.API.Retry.MaxRetries < 0 {
		return fmt.Errorf("api.retry.max_retries cannot be negative")
	}
	if config.API.Retry.BaseDelay < 0 {
		return fmt.Errorf("api.retry.base_delay cannot be negative")
	}
	if len(config.API.Retry.StatusCodes) == 0 {
		config.API.Retry.StatusCodes = append([]int(nil), DefaultRetryStatusCodes...)
	}
	if len(config.API.AuthEndpoints) == 0 {
		config.API.AuthEndpoints = append([]string(nil), DefaultAuthEndpoints...)
	}
	if config.API.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("api.rate_limit.requests_per_second cannot be negative")
	}

	seen := make(map[string]bool)
	for i, p := range config.OAuth.Providers {
		if p.Name == "" || p.ClientID == "" {
			return fmt.Errorf("oauth.providers[%d]: name and client_id are required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("oauth.providers[%d]: duplicate provider %q", i, p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}
