package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"winetour-api/core/config"
	"winetour-api/modules/calendar/dto"
	"winetour-api/modules/calendar/entity"
	"winetour-api/modules/calendar/provider"
	"winetour-api/modules/calendar/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory CalendarRepository with the same version semantics as Postgres.
type memRepo struct {
	mu         sync.Mutex
	connectors map[string]*entity.CalendarConnector
	states     map[string]*entity.OAuthState

	// beforeUpdate runs once, right before the next UpdateCredential, to simulate a concurrent writer.
	beforeUpdate func(stored *entity.CalendarConnector)
}

func newMemRepo() *memRepo {
	return &memRepo{
		connectors: make(map[string]*entity.CalendarConnector),
		states:     make(map[string]*entity.OAuthState),
	}
}

func connectorKey(userID uuid.UUID, provider string) string {
	return userID.String() + "|" + provider
}

func (r *memRepo) put(conn *entity.CalendarConnector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	if conn.Version == 0 {
		conn.Version = 1
	}
	cp := *conn
	r.connectors[connectorKey(conn.UserID, conn.Provider)] = &cp
}

func (r *memRepo) stored(userID uuid.UUID, provider string) *entity.CalendarConnector {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connectors[connectorKey(userID, provider)]
	if !ok {
		return nil
	}
	cp := *conn
	return &cp
}

func (r *memRepo) GetConnector(_ context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnector, error) {
	return r.stored(userID, provider), nil
}

func (r *memRepo) GetConnectorsByUserID(_ context.Context, userID uuid.UUID) ([]entity.CalendarConnector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.CalendarConnector
	for _, conn := range r.connectors {
		if conn.UserID == userID {
			out = append(out, *conn)
		}
	}
	return out, nil
}

func (r *memRepo) UpsertConnector(_ context.Context, conn *entity.CalendarConnector) (*entity.CalendarConnector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := connectorKey(conn.UserID, conn.Provider)
	existing, ok := r.connectors[key]
	if !ok {
		existing = &entity.CalendarConnector{UserID: conn.UserID, Provider: conn.Provider}
		existing.ID = uuid.New()
		existing.CreatedAt = time.Now()
		r.connectors[key] = existing
	}
	existing.AccessToken = conn.AccessToken
	if conn.RefreshToken != "" {
		existing.RefreshToken = conn.RefreshToken
	}
	existing.ExpiresIn = conn.ExpiresIn
	existing.ExpiresAt = conn.ExpiresAt
	existing.IsValid = true
	existing.IsActive = true
	existing.Version++
	cp := *existing
	return &cp, nil
}

func (r *memRepo) UpdateCredential(_ context.Context, conn *entity.CalendarConnector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.connectors[connectorKey(conn.UserID, conn.Provider)]
	if !ok {
		return repository.ErrVersionConflict
	}
	if hook := r.beforeUpdate; hook != nil {
		r.beforeUpdate = nil
		hook(stored)
	}
	if stored.Version != conn.Version {
		return repository.ErrVersionConflict
	}
	stored.AccessToken = conn.AccessToken
	stored.RefreshToken = conn.RefreshToken
	stored.ExpiresIn = conn.ExpiresIn
	stored.ExpiresAt = conn.ExpiresAt
	stored.IsValid = conn.IsValid
	stored.Version++
	conn.Version++
	return nil
}

func (r *memRepo) SetActive(_ context.Context, userID uuid.UUID, provider string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.connectors[connectorKey(userID, provider)]
	if !ok {
		return repository.ErrNotFound
	}
	stored.IsActive = active
	stored.Version++
	return nil
}

func (r *memRepo) SaveOAuthState(_ context.Context, state *entity.OAuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *state
	r.states[state.State] = &cp
	return nil
}

func (r *memRepo) ConsumeOAuthState(_ context.Context, state string) (*entity.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[state]
	if !ok {
		return nil, nil
	}
	delete(r.states, state)
	return st, nil
}

func (r *memRepo) CleanupExpiredOAuthStates(context.Context) error { return nil }

// fakeProvider serves both the OAuth token endpoint (/token) and the calendar API (/api/...).
type fakeProvider struct {
	mu          sync.Mutex
	tokenStatus int
	tokenBody   string
	apiStatus   int
	apiBody     string
	lastForm    url.Values
	lastAPI     *http.Request

	tokenCalls atomic.Int32
	apiCalls   atomic.Int32
}

func (f *fakeProvider) respondToken(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus, f.tokenBody = status, body
}

func (f *fakeProvider) respondAPI(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiStatus, f.apiBody = status, body
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/token" {
		f.tokenCalls.Add(1)
		_ = r.ParseForm()
		f.lastForm = r.PostForm
		w.WriteHeader(f.tokenStatus)
		_, _ = io.WriteString(w, f.tokenBody)
		return
	}

	f.apiCalls.Add(1)
	f.lastAPI = r
	w.WriteHeader(f.apiStatus)
	if f.apiBody != "" {
		_, _ = io.WriteString(w, f.apiBody)
	}
}

type fakeNotifier struct {
	calls atomic.Int32
}

func (n *fakeNotifier) NotifyReconnectRequired(context.Context, uuid.UUID, string) error {
	n.calls.Add(1)
	return nil
}

type fixture struct {
	now      time.Time
	userID   uuid.UUID
	repo     *memRepo
	fake     *fakeProvider
	notifier *fakeNotifier
	tokens   *TokenManager
	gateway  *CalendarGateway
	service  CalendarService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fake := &fakeProvider{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"A2","token_type":"Bearer","expires_in":3600}`,
		apiStatus:   http.StatusOK,
		apiBody:     `{"id":"evt123"}`,
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	providerCfg := func(apiBase string) config.ProviderConfig {
		return config.ProviderConfig{
			ClientID:      "client-id",
			ClientSecret:  "client-secret",
			AuthEndpoint:  srv.URL + "/authorize",
			TokenEndpoint: srv.URL + "/token",
			APIBaseURL:    apiBase,
			RedirectURI:   "http://localhost:7070/api/v1/public/calendar/callback",
			Scopes:        []string{"calendar"},
		}
	}
	cfg := config.CalendarConfig{
		Google:             providerCfg(srv.URL + "/api/"),
		Microsoft:          providerCfg(srv.URL + "/api"),
		Orange:             providerCfg(srv.URL + "/api"),
		DefaultTimeZone:    "Europe/Paris",
		RefreshBuffer:      5 * time.Minute,
		HTTPTimeout:        5 * time.Second,
		PreferredProviders: []string{dto.ProviderGoogle, dto.ProviderMicrosoft, dto.ProviderOrange},
	}

	httpClient := srv.Client()
	registry := provider.NewRegistry(cfg.Providers(), httpClient)
	repo := newMemRepo()
	notifier := &fakeNotifier{}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tokens := NewTokenManager(repo, registry, httpClient, cfg, notifier)
	tokens.now = func() time.Time { return now }
	gateway := NewCalendarGateway(repo, tokens, registry, cfg)
	svc := NewCalendarService(repo, registry, gateway, httpClient, cfg)
	svc.(*calendarService).now = func() time.Time { return now }

	return &fixture{
		now:      now,
		userID:   uuid.New(),
		repo:     repo,
		fake:     fake,
		notifier: notifier,
		tokens:   tokens,
		gateway:  gateway,
		service:  svc,
	}
}

// connect stores a valid, active connector for the fixture user.
func (f *fixture) connect(provider, accessToken, refreshToken string, expiresAt time.Time) {
	f.repo.put(&entity.CalendarConnector{
		UserID:   f.userID,
		Provider: provider,
		ConnectorCredential: entity.ConnectorCredential{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    3600,
			ExpiresAt:    expiresAt,
			IsValid:      true,
			IsActive:     true,
		},
	})
}

func (f *fixture) connector(provider string) *entity.CalendarConnector {
	return f.repo.stored(f.userID, provider)
}

func sampleEvent() *dto.EventData {
	return &dto.EventData{
		Title:     "Cellar tour",
		Location:  "Saint-Émilion",
		StartTime: "2026-06-12T10:00:00",
		EndTime:   "2026-06-12T11:30:00",
		Attendees: []dto.Attendee{{Email: "guest@example.com", Name: "Guest"}},
	}
}

func requireNoNetwork(t *testing.T, f *fixture) {
	t.Helper()
	require.Zero(t, f.fake.tokenCalls.Load(), "token endpoint was called")
	require.Zero(t, f.fake.apiCalls.Load(), "calendar API was called")
}

func newEmptyRegistry() *provider.Registry {
	return provider.NewRegistry(map[string]config.ProviderConfig{}, nil)
}
