package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"winetour-api/core/config"
	"winetour-api/modules/calendar/dto"

	"golang.org/x/oauth2"
)

// ErrEventNotFound is returned when the remote event no longer exists.
var ErrEventNotFound = errors.New("calendar event not found")

// APIError is a non-success answer from a provider calendar API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s calendar API error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Provider is one external calendar integration.
type Provider interface {
	Name() string
	// Configured reports whether OAuth client credentials are present.
	Configured() bool
	OAuthConfig() *oauth2.Config
	AuthCodeOptions() []oauth2.AuthCodeOption

	CreateEvent(ctx context.Context, accessToken string, event *dto.EventData) (string, error)
	UpdateEvent(ctx context.Context, accessToken, eventID string, event *dto.EventData) error
	DeleteEvent(ctx context.Context, accessToken, eventID string) error
}

// Registry resolves a Provider by its stored tag.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds every known provider from its configuration.
func NewRegistry(cfgs map[string]config.ProviderConfig, httpClient *http.Client) *Registry {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	r := &Registry{providers: make(map[string]Provider)}
	r.Register(NewGoogleProvider(cfgs[dto.ProviderGoogle], httpClient))
	r.Register(NewMicrosoftProvider(cfgs[dto.ProviderMicrosoft], httpClient))
	r.Register(NewOrangeProvider(cfgs[dto.ProviderOrange], httpClient))
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names returns the registered provider tags in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func oauthConfig(cfg config.ProviderConfig, fallback oauth2.Endpoint) *oauth2.Config {
	endpoint := fallback
	if cfg.AuthEndpoint != "" {
		endpoint.AuthURL = cfg.AuthEndpoint
	}
	if cfg.TokenEndpoint != "" {
		endpoint.TokenURL = cfg.TokenEndpoint
	}
	// client_id and client_secret travel in the form body of the token request.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
	}
}
