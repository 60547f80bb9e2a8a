package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devilmonastery/salesdesk/internal/client"
)

// EnvConfigPath overrides the location of the CLI config file
const EnvConfigPath = "SALESDESK_CONFIG"

var (
	ErrNoCurrentContext = errors.New("no current context set")
	ErrContextNotFound  = errors.New("context not found")
)

// ServerSettings describe how a context reaches the API
type ServerSettings struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries *int          `yaml:"max_retries,omitempty"` // nil keeps the pipeline default
	RateLimit  float64       `yaml:"rate_limit,omitempty"`  // requests per second, 0 is unlimited
}

// RenderSettings control terminal output
type RenderSettings struct {
	Theme string `yaml:"theme"` // glamour style: auto, dark, light, notty
}

// Context is one named API target, like a kubectl context. Each context
// keeps its own credentials file.
type Context struct {
	Server      ServerSettings `yaml:"server"`
	Rendering   RenderSettings `yaml:"rendering"`
	DownloadDir string         `yaml:"download_dir,omitempty"`
}

// Config is the CLI config file
type Config struct {
	CurrentContext string              `yaml:"current-context"`
	Contexts       map[string]*Context `yaml:"contexts"`
}

func newContext(apiURL string) *Context {
	return &Context{
		Server:    ServerSettings{URL: apiURL},
		Rendering: RenderSettings{Theme: "auto"},
	}
}

// DefaultConfig has a local "dev" context and the hosted "prod" one
func DefaultConfig() *Config {
	return &Config{
		CurrentContext: "dev",
		Contexts: map[string]*Context{
			"dev":  newContext("http://localhost:8000/api/"),
			"prod": newContext("https://api.salesdesk.app/api/"),
		},
	}
}

// GetCurrentContext returns the active context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, ErrNoCurrentContext
	}
	ctx, ok := c.Contexts[c.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrContextNotFound, c.CurrentContext)
	}
	return ctx, nil
}

func (c *Config) SetCurrentContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	c.CurrentContext = name
	return nil
}

// AddContext adds or replaces a context. The first context added becomes
// current.
func (c *Config) AddContext(name string, ctx *Context) {
	if c.Contexts == nil {
		c.Contexts = make(map[string]*Context)
	}
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
}

// DeleteContext removes a context other than the current one
func (c *Config) DeleteContext(name string) error {
	if name == c.CurrentContext {
		return fmt.Errorf("cannot delete current context %q", name)
	}
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	delete(c.Contexts, name)
	return nil
}

// ContextNames returns the context names in sorted order
func (c *Config) ContextNames() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every context has an absolute API URL
func (c *Config) Validate() error {
	for _, name := range c.ContextNames() {
		ctx := c.Contexts[name]
		if ctx == nil {
			return fmt.Errorf("context %q is empty", name)
		}
		if err := validateAPIURL(ctx.Server.URL); err != nil {
			return fmt.Errorf("context %q: %w", name, err)
		}
		if ctx.Server.MaxRetries != nil && *ctx.Server.MaxRetries < 0 {
			return fmt.Errorf("context %q: max_retries cannot be negative", name)
		}
	}
	return nil
}

func validateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API URL must be absolute (got %q)", raw)
	}
	return nil
}

// APIConfig builds the pipeline configuration for this context
func (ctx *Context) APIConfig() client.Config {
	cfg := client.DefaultConfig(ctx.Server.URL)
	if ctx.Server.Timeout > 0 {
		cfg.Timeout = ctx.Server.Timeout
	}
	if ctx.Server.MaxRetries != nil {
		cfg.Retry.MaxRetries = *ctx.Server.MaxRetries
	}
	cfg.UserAgent = "salesdesk-cli"
	return cfg
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "salesdesk"), nil
}

// GetConfigPath returns $SALESDESK_CONFIG or ~/.config/salesdesk/config.yaml
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadConfig reads the config file, writing the defaults on first use
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.CurrentContext == "" {
		if names := cfg.ContextNames(); len(names) > 0 {
			cfg.CurrentContext = names[0]
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to the config file
func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
