package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"winetour-api/core/config"
	"winetour-api/core/constants"
	appErrors "winetour-api/core/errors"
	"winetour-api/core/logger"
	"winetour-api/core/utils"
	"winetour-api/modules/calendar/dto"
	"winetour-api/modules/calendar/entity"
	"winetour-api/modules/calendar/provider"
	"winetour-api/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

type CalendarService interface {
	// Connection management
	GetAuthURL(ctx context.Context, userID uuid.UUID, providerName string) (*dto.OAuthURLResponse, error)
	HandleCallback(ctx context.Context, providerName, state, code string) (*dto.CalendarConnectionResponse, error)
	GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, error)
	Disconnect(ctx context.Context, userID uuid.UUID, providerName string) error
	Activate(ctx context.Context, userID uuid.UUID, providerName string) error

	// Calendar operations
	CreateEvent(ctx context.Context, userID uuid.UUID, event *dto.EventData) (*dto.CalendarEventResponse, error)
	UpdateEvent(ctx context.Context, userID uuid.UUID, ref dto.EventRef, event *dto.EventData) (*dto.CalendarEventResponse, error)
	DeleteEvent(ctx context.Context, userID uuid.UUID, ref dto.EventRef) (*dto.CalendarEventResponse, error)

	// Booking collaborator interface; these never fail.
	AddBookingToCalendar(ctx context.Context, userID uuid.UUID, event *dto.EventData) dto.EventRef
	UpdateBookingInCalendar(ctx context.Context, userID uuid.UUID, ref dto.EventRef, event *dto.EventData) bool
	DeleteBookingFromCalendar(ctx context.Context, userID uuid.UUID, ref dto.EventRef) bool
}

type calendarService struct {
	repo      repository.CalendarRepository
	providers *provider.Registry
	gateway   *CalendarGateway
	http      *http.Client
	timeout   time.Duration
	now       func() time.Time
}

func NewCalendarService(
	repo repository.CalendarRepository,
	providers *provider.Registry,
	gateway *CalendarGateway,
	httpClient *http.Client,
	cfg config.CalendarConfig,
) CalendarService {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = constants.CalendarHTTPTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &calendarService{
		repo:      repo,
		providers: providers,
		gateway:   gateway,
		http:      httpClient,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (s *calendarService) configuredProvider(name string) (provider.Provider, error) {
	if !dto.IsValidProvider(name) {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidInput, "Unknown calendar provider", nil)
	}
	p, ok := s.providers.Get(name)
	if !ok || !p.Configured() {
		logger.Error("CalendarService:ProviderNotConfigured", "provider", name)
		return nil, appErrors.NewAppError(appErrors.ErrProviderNotConfigured, "Calendar provider is not configured", ErrProviderNotConfigured)
	}
	return p, nil
}

// GetAuthURL starts the OAuth connect flow for the user
func (s *calendarService) GetAuthURL(ctx context.Context, userID uuid.UUID, providerName string) (*dto.OAuthURLResponse, error) {
	p, err := s.configuredProvider(providerName)
	if err != nil {
		return nil, err
	}

	state := utils.GenerateRandomString(constants.OAuthStateByteLength)
	err = s.repo.SaveOAuthState(ctx, &entity.OAuthState{
		ID:        uuid.New(),
		State:     state,
		UserID:    userID,
		Provider:  p.Name(),
		ExpiresAt: s.now().Add(constants.OAuthStateTTL),
	})
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to start calendar connection", err)
	}

	return &dto.OAuthURLResponse{
		URL:   p.OAuthConfig().AuthCodeURL(state, p.AuthCodeOptions()...),
		State: state,
	}, nil
}

// HandleCallback finishes the connect flow and stores the credential
func (s *calendarService) HandleCallback(ctx context.Context, providerName, state, code string) (*dto.CalendarConnectionResponse, error) {
	p, err := s.configuredProvider(providerName)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.ConsumeOAuthState(ctx, state)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to verify OAuth state", err)
	}
	if pending == nil || pending.Provider != p.Name() {
		logger.Warn("CalendarService:HandleCallback:InvalidState", "provider", providerName)
		return nil, appErrors.NewAppError(appErrors.ErrInvalidOAuthState, "Invalid or expired OAuth state", nil)
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, s.http)

	connectedAt := s.now()
	tok, err := p.OAuthConfig().Exchange(exchangeCtx, code)
	if err != nil {
		logger.Error("CalendarService:HandleCallback:ExchangeError", "user_id", pending.UserID, "provider", providerName, "error", err)
		return nil, appErrors.NewAppError(appErrors.ErrInvalidInput, "Failed to exchange authorization code", err)
	}

	conn := &entity.CalendarConnector{UserID: pending.UserID, Provider: p.Name()}
	applyToken(conn, tok, connectedAt)
	// Tokens without any lifetime information are used until rejected.
	if tok.Expiry.IsZero() {
		conn.ExpiresIn = 0
		conn.ExpiresAt = time.Time{}
	}

	saved, err := s.repo.UpsertConnector(ctx, conn)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to save calendar connection", err)
	}

	logger.Info("CalendarService:HandleCallback:Connected", "user_id", saved.UserID, "provider", saved.Provider)
	resp := toConnectionResponse(saved)
	return &resp, nil
}

// GetConnections returns all calendar connections for a user
func (s *calendarService) GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, error) {
	connectors, err := s.repo.GetConnectorsByUserID(ctx, userID)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to load calendar connections", err)
	}

	result := make([]dto.CalendarConnectionResponse, 0, len(connectors))
	for i := range connectors {
		result = append(result, toConnectionResponse(&connectors[i]))
	}
	return result, nil
}

// Disconnect marks the connector inactive; credentials stay on file.
func (s *calendarService) Disconnect(ctx context.Context, userID uuid.UUID, providerName string) error {
	return s.setActive(ctx, userID, providerName, false)
}

func (s *calendarService) Activate(ctx context.Context, userID uuid.UUID, providerName string) error {
	return s.setActive(ctx, userID, providerName, true)
}

func (s *calendarService) setActive(ctx context.Context, userID uuid.UUID, providerName string, active bool) error {
	if !dto.IsValidProvider(providerName) {
		return appErrors.NewAppError(appErrors.ErrInvalidInput, "Unknown calendar provider", nil)
	}
	if err := s.repo.SetActive(ctx, userID, providerName, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.NewAppError(appErrors.ErrCalendarNotConnected, "Calendar is not connected", err)
		}
		return appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to update calendar connection", err)
	}
	logger.Info("CalendarService:SetActive", "user_id", userID, "provider", providerName, "active", active)
	return nil
}

func (s *calendarService) CreateEvent(ctx context.Context, userID uuid.UUID, event *dto.EventData) (*dto.CalendarEventResponse, error) {
	ref, err := s.gateway.CreateEvent(ctx, userID, event)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidRequestData, err.Error(), err)
	}
	return &dto.CalendarEventResponse{EventID: ref.ID, Provider: ref.Provider, Synced: !ref.IsZero()}, nil
}

func (s *calendarService) UpdateEvent(ctx context.Context, userID uuid.UUID, ref dto.EventRef, event *dto.EventData) (*dto.CalendarEventResponse, error) {
	ok, err := s.gateway.UpdateEvent(ctx, userID, ref, event)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidRequestData, err.Error(), err)
	}
	return &dto.CalendarEventResponse{EventID: ref.ID, Provider: ref.Provider, Synced: ok}, nil
}

func (s *calendarService) DeleteEvent(ctx context.Context, userID uuid.UUID, ref dto.EventRef) (*dto.CalendarEventResponse, error) {
	ok, err := s.gateway.DeleteEvent(ctx, userID, ref)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidRequestData, err.Error(), err)
	}
	return &dto.CalendarEventResponse{EventID: ref.ID, Provider: ref.Provider, Synced: ok}, nil
}

// AddBookingToCalendar returns the created event reference, zero on failure.
func (s *calendarService) AddBookingToCalendar(ctx context.Context, userID uuid.UUID, event *dto.EventData) dto.EventRef {
	ref, err := s.gateway.CreateEvent(ctx, userID, event)
	if err != nil {
		logger.Error("CalendarService:AddBookingToCalendar:InvalidEvent", "user_id", userID, "error", err)
		return dto.EventRef{}
	}
	return ref
}

func (s *calendarService) UpdateBookingInCalendar(ctx context.Context, userID uuid.UUID, ref dto.EventRef, event *dto.EventData) bool {
	ok, err := s.gateway.UpdateEvent(ctx, userID, ref, event)
	if err != nil {
		logger.Error("CalendarService:UpdateBookingInCalendar:InvalidEvent", "user_id", userID, "event_id", ref.ID, "provider", ref.Provider, "error", err)
		return false
	}
	return ok
}

func (s *calendarService) DeleteBookingFromCalendar(ctx context.Context, userID uuid.UUID, ref dto.EventRef) bool {
	ok, err := s.gateway.DeleteEvent(ctx, userID, ref)
	if err != nil {
		logger.Error("CalendarService:DeleteBookingFromCalendar:InvalidEvent", "user_id", userID, "event_id", ref.ID, "provider", ref.Provider, "error", err)
		return false
	}
	return ok
}

func toConnectionResponse(conn *entity.CalendarConnector) dto.CalendarConnectionResponse {
	resp := dto.CalendarConnectionResponse{
		ID:          conn.ID.String(),
		Provider:    conn.Provider,
		Status:      conn.Status(),
		IsActive:    conn.IsActive,
		IsValid:     conn.IsValid,
		ConnectedAt: conn.CreatedAt.Format(time.RFC3339),
	}
	if !conn.ExpiresAt.IsZero() {
		resp.ExpiresAt = conn.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}
