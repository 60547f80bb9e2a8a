package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"
	"golang.org/x/oauth2/microsoft"

	"github.com/devilmonastery/salesdesk/internal/config"
	"github.com/devilmonastery/salesdesk/internal/pkg/urlutil"
)

// ErrUnsupportedProvider is returned for provider names outside the known set.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Provider route names.
const (
	ProviderGoogle    = "google"
	ProviderLinkedIn  = "linkedin"
	ProviderMicrosoft = "microsoft"
)

// backendNames maps route names to the names the API's social login expects.
var backendNames = map[string]string{
	ProviderGoogle:    "google-oauth2",
	ProviderLinkedIn:  "linkedin-openidconnect",
	ProviderMicrosoft: "microsoft-graph",
}

// BackendProviderName returns the API name for a provider route name.
func BackendProviderName(name string) (string, error) {
	backend, ok := backendNames[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return backend, nil
}

// CallbackPath is the web route the provider redirects back to.
func CallbackPath(name string) string {
	return "/api/auth/callback/" + name
}

// RedirectURI is the absolute callback URL registered with the provider.
func RedirectURI(appURL, name string) string {
	u, err := urlutil.AppURL(appURL, CallbackPath(name), nil)
	if err != nil {
		return strings.TrimRight(appURL, "/") + CallbackPath(name)
	}
	return u
}

// Provider is a configured OAuth client for one identity provider.
type Provider struct {
	Name        string
	BackendName string
	PKCE        bool
	OAuth2      *oauth2.Config

	authParams []oauth2.AuthCodeOption
}

// AuthCodeURL builds the provider authorization URL. verifier is only used
// when PKCE is enabled.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	opts := append([]oauth2.AuthCodeOption(nil), p.authParams...)
	if p.PKCE && verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return p.OAuth2.AuthCodeURL(state, opts...)
}

// Registry holds the configured providers
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds providers from configuration. Unknown names are rejected.
func NewRegistry(cfg config.OAuthConfig) (*Registry, error) {
	r := &Registry{providers: make(map[string]*Provider)}
	for _, pc := range cfg.Providers {
		p, err := newProvider(cfg.AppURL, pc)
		if err != nil {
			return nil, err
		}
		r.providers[p.Name] = p
	}
	return r, nil
}

func newProvider(appURL string, pc config.ProviderConfig) (*Provider, error) {
	backend, err := BackendProviderName(pc.Name)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		Name:        pc.Name,
		BackendName: backend,
		PKCE:        pc.PKCE,
		OAuth2: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  RedirectURI(appURL, pc.Name),
		},
	}

	switch pc.Name {
	case ProviderGoogle:
		p.OAuth2.Endpoint = google.Endpoint
		p.OAuth2.Scopes = []string{"openid", "email", "profile"}
		p.authParams = []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	case ProviderLinkedIn:
		p.OAuth2.Endpoint = linkedin.Endpoint
		p.OAuth2.Scopes = []string{"openid", "profile", "email"}
	case ProviderMicrosoft:
		tenant := pc.Tenant
		if tenant == "" {
			tenant = "common"
		}
		p.OAuth2.Endpoint = microsoft.AzureADEndpoint(tenant)
		p.OAuth2.Scopes = []string{"openid", "profile", "email", "https://graph.microsoft.com/user.read"}
		p.authParams = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("response_mode", "query")}
	}

	if len(pc.Scopes) > 0 {
		p.OAuth2.Scopes = pc.Scopes
	}
	if pc.AuthURL != "" {
		p.OAuth2.Endpoint.AuthURL = pc.AuthURL
	}
	if pc.TokenURL != "" {
		p.OAuth2.Endpoint.TokenURL = pc.TokenURL
	}
	return p, nil
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// List returns all configured provider names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewState returns an unguessable OAuth state value.
func NewState() string {
	return uuid.NewString()
}

// NewVerifier returns a PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}
