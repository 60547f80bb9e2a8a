package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/devilmonastery/salesdesk/internal/config"
)

// WebServerConfig represents the web server configuration. The shared
// API, OAuth and logging sections sit at the top level of the file.
type WebServerConfig struct {
	config.Config `yaml:",inline"`

	Server  HTTPServer    `yaml:"server"`
	Session SessionConfig `yaml:"session"`
}

// HTTPServer holds HTTP server configuration
type HTTPServer struct {
	Host            string        `yaml:"host" default:"localhost"`
	Port            int           `yaml:"port" default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	Secret        string        `yaml:"secret"` // base64-encoded, at least 32 bytes
	AccessMaxAge  time.Duration `yaml:"access_max_age" default:"24h"`
	RefreshMaxAge time.Duration `yaml:"refresh_max_age" default:"168h"`
	OAuthMaxAge   time.Duration `yaml:"oauth_max_age" default:"10m"` // lifetime of a started social sign-in
}

// DefaultConfigPaths defines the default locations to search for web configuration files
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./configs/web.yaml",
	"./configs/web.yml",
	"./configs/development.yaml",
	"/etc/salesdesk/web.yaml",
	"/etc/salesdesk/config.yaml",
}

// Default returns a WebServerConfig populated with default values
func Default() *WebServerConfig {
	return &WebServerConfig{
		Config: *config.Default(),
		Server: HTTPServer{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			AccessMaxAge:  24 * time.Hour,
			RefreshMaxAge: 7 * 24 * time.Hour,
			OAuthMaxAge:   10 * time.Minute,
		},
	}
}

// Load loads the web server configuration from the specified file or default locations
func Load(configPath string) (*WebServerConfig, error) {
	cfg := Default()

	if configPath == "" {
		configPath = config.FindConfigFile(DefaultConfigPaths)
	}

	if configPath != "" && config.FileExists(configPath) {
		slog.Info("loading web config", slog.String("path", configPath))
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(config.ExpandEnvVars(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		slog.Info("no web config file found, using defaults")
	}

	// Environment variables take precedence
	config.ApplyEnvOverrides(&cfg.Config)
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate performs basic validation on the web configuration
func validate(cfg *WebServerConfig) error {
	if err := config.Validate(&cfg.Config); err != nil {
		return err
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if cfg.Session.AccessMaxAge <= 0 || cfg.Session.RefreshMaxAge <= 0 || cfg.Session.OAuthMaxAge <= 0 {
		return fmt.Errorf("session max ages must be positive")
	}
	if cfg.Environment.IsProduction() && cfg.Session.Secret == "" {
		return fmt.Errorf("session.secret is required in production")
	}
	return nil
}
