package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.API.Retry.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.API.Retry.MaxRetries)
	}
	if cfg.API.Retry.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", cfg.API.Retry.BaseDelay)
	}
	if cfg.API.SlowThreshold != time.Second {
		t.Errorf("SlowThreshold = %v, want 1s", cfg.API.SlowThreshold)
	}
	if len(cfg.API.AuthEndpoints) != 3 {
		t.Errorf("AuthEndpoints = %v, want login, signup and refresh", cfg.API.AuthEndpoints)
	}
	if cfg.Environment != Test {
		t.Errorf("Environment = %q, want %q", cfg.Environment, Test)
	}
}

func TestLoadFileAndEnvExpansion(t *testing.T) {
	t.Setenv("TEST_API_HOST", "api.example.com")
	path := writeConfig(t, `
environment: production
api:
  base_url: https://${TEST_API_HOST}/v1/
  timeout: 5s
  retry:
    max_retries: 1
    base_delay: 250ms
  rate_limit:
    requests_per_second: 10
    burst: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.com/v1/" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.API.Timeout)
	}
	if cfg.API.Retry.MaxRetries != 1 || cfg.API.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("Retry = %+v", cfg.API.Retry)
	}
	if cfg.API.RateLimit.RequestsPerSecond != 10 || cfg.API.RateLimit.Burst != 5 {
		t.Errorf("RateLimit = %+v", cfg.API.RateLimit)
	}
	if !cfg.Environment.IsProduction() {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SALESDESK_API_URL", "https://override.example.com/")
	t.Setenv("SALESDESK_ENV", "production")
	t.Setenv("SALESDESK_API_TIMEOUT", "12")
	path := writeConfig(t, "api:\n  base_url: https://file.example.com/\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://override.example.com/" {
		t.Errorf("BaseURL = %q, want env override", cfg.API.BaseURL)
	}
	if cfg.Environment != Production {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.API.Timeout != 12*time.Second {
		t.Errorf("Timeout = %v, want 12s", cfg.API.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "relative base url", mutate: func(c *Config) { c.API.BaseURL = "api/" }, wantErr: true},
		{name: "unknown environment", mutate: func(c *Config) { c.Environment = "staging" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.API.Retry.MaxRetries = -1 }, wantErr: true},
		{name: "empty retry statuses get defaults", mutate: func(c *Config) { c.API.Retry.StatusCodes = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(cfg.API.Retry.StatusCodes) == 0 {
				t.Errorf("StatusCodes not defaulted")
			}
		})
	}
}
