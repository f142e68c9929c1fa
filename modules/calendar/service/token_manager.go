package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"winetour-api/core/config"
	"winetour-api/core/constants"
	"winetour-api/core/logger"
	"winetour-api/modules/calendar/entity"
	"winetour-api/modules/calendar/provider"
	"winetour-api/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// defaultExpiresIn is used when the token endpoint reports no lifetime at all.
const defaultExpiresIn int64 = 3600

var (
	ErrNotConnected          = errors.New("calendar not connected")
	ErrConnectorInvalid      = errors.New("calendar connector needs re-authentication")
	ErrNoRefreshToken        = errors.New("no refresh token on file")
	ErrProviderNotConfigured = errors.New("calendar provider OAuth client is not configured")
	ErrRefreshRejected       = errors.New("refresh token rejected by provider")
	ErrRefreshUnavailable    = errors.New("token endpoint unavailable")
)

// ReconnectNotifier tells a user that a connector must be re-authorised.
type ReconnectNotifier interface {
	NotifyReconnectRequired(ctx context.Context, userID uuid.UUID, provider string) error
}

// TokenManager hands out usable access tokens, refreshing them when they are close to expiry.
type TokenManager struct {
	repo      repository.CalendarRepository
	providers *provider.Registry
	http      *http.Client
	notifier  ReconnectNotifier
	buffer    time.Duration
	timeout   time.Duration
	now       func() time.Time
}

func NewTokenManager(
	repo repository.CalendarRepository,
	providers *provider.Registry,
	httpClient *http.Client,
	cfg config.CalendarConfig,
	notifier ReconnectNotifier,
) *TokenManager {
	buffer := cfg.RefreshBuffer
	if buffer <= 0 {
		buffer = constants.TokenRefreshBuffer
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = constants.CalendarHTTPTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &TokenManager{
		repo:      repo,
		providers: providers,
		http:      httpClient,
		notifier:  notifier,
		buffer:    buffer,
		timeout:   timeout,
		now:       time.Now,
	}
}

// GetAccessToken returns a usable access token, or false when the user has no
// usable connector for provider or the refresh failed. It never returns an error.
func (m *TokenManager) GetAccessToken(ctx context.Context, userID uuid.UUID, provider string) (string, bool) {
	conn, err := m.repo.GetConnector(ctx, userID, provider)
	if err != nil {
		logger.Error("TokenManager:GetAccessToken:LoadError", "user_id", userID, "provider", provider, "error", err)
		return "", false
	}
	if !conn.HasCredential() {
		return "", false
	}
	if !conn.IsValid || !conn.IsActive {
		logger.Debug("TokenManager:GetAccessToken:Unusable", "user_id", userID, "provider", provider,
			"is_valid", conn.IsValid, "is_active", conn.IsActive)
		return "", false
	}

	if !conn.NeedsRefresh(m.now(), m.buffer) {
		return conn.AccessToken, true
	}

	fresh, err := m.refresh(ctx, conn)
	if err != nil {
		logger.Warn("TokenManager:GetAccessToken:RefreshFailed", "user_id", userID, "provider", provider, "error", err)
		return "", false
	}
	return fresh.AccessToken, true
}

// RefreshToken exchanges the stored refresh token for a new access token.
// A nil error means the connector now holds a fresh credential.
func (m *TokenManager) RefreshToken(ctx context.Context, userID uuid.UUID, provider string) error {
	conn, err := m.repo.GetConnector(ctx, userID, provider)
	if err != nil {
		return fmt.Errorf("load connector: %w", err)
	}
	if !conn.HasCredential() {
		return ErrNotConnected
	}
	if !conn.IsValid {
		return ErrConnectorInvalid
	}
	_, err = m.refresh(ctx, conn)
	return err
}

func (m *TokenManager) refresh(ctx context.Context, conn *entity.CalendarConnector) (*entity.CalendarConnector, error) {
	if conn.RefreshToken == "" {
		logger.Warn("TokenManager:Refresh:NoRefreshToken", "user_id", conn.UserID, "provider", conn.Provider)
		return nil, ErrNoRefreshToken
	}

	p, ok := m.providers.Get(conn.Provider)
	if !ok || !p.Configured() {
		// Operator fault: client id/secret missing from the environment.
		logger.Error("TokenManager:Refresh:ProviderNotConfigured", "provider", conn.Provider)
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, conn.Provider)
	}

	logger.Info("TokenManager:Refresh:Start", "user_id", conn.UserID, "provider", conn.Provider)

	refreshedAt := m.now()
	tok, err := m.exchange(ctx, p, conn.RefreshToken)
	if err != nil {
		if !isRejection(err) {
			logger.Warn("TokenManager:Refresh:Transient", "user_id", conn.UserID, "provider", conn.Provider, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrRefreshUnavailable, err)
		}

		logger.Warn("TokenManager:Refresh:Rejected", "user_id", conn.UserID, "provider", conn.Provider, "error", err)
		if latest := m.invalidate(ctx, conn); latest != nil {
			return latest, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}

	stored, err := m.store(ctx, conn, tok, refreshedAt)
	if err != nil {
		return nil, err
	}
	logger.Info("TokenManager:Refresh:Success", "user_id", conn.UserID, "provider", conn.Provider, "expires_at", stored.ExpiresAt)
	return stored, nil
}

func (m *TokenManager) exchange(ctx context.Context, p provider.Provider, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.http)

	return p.OAuthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

// store persists a refreshed credential. On a version conflict it re-reads the
// connector: a disconnect wins, then a fresh token written by a concurrent
// refresh, otherwise the write is retried once on top of the latest version.
func (m *TokenManager) store(ctx context.Context, conn *entity.CalendarConnector, tok *oauth2.Token, refreshedAt time.Time) (*entity.CalendarConnector, error) {
	updated := *conn
	applyToken(&updated, tok, refreshedAt)

	err := m.repo.UpdateCredential(ctx, &updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, repository.ErrVersionConflict) {
		logger.Error("TokenManager:Store:Error", "user_id", conn.UserID, "provider", conn.Provider, "error", err)
		return nil, fmt.Errorf("save refreshed token: %w", err)
	}

	latest, err := m.repo.GetConnector(ctx, conn.UserID, conn.Provider)
	if err != nil {
		return nil, fmt.Errorf("reload connector: %w", err)
	}
	if !latest.HasCredential() || !latest.IsActive {
		logger.Info("TokenManager:Store:DisconnectedMeanwhile", "user_id", conn.UserID, "provider", conn.Provider)
		return nil, ErrNotConnected
	}
	if latest.IsValid && !latest.NeedsRefresh(m.now(), m.buffer) {
		logger.Info("TokenManager:Store:ConcurrentRefresh", "user_id", conn.UserID, "provider", conn.Provider)
		return latest, nil
	}

	applyToken(latest, tok, refreshedAt)
	if err := m.repo.UpdateCredential(ctx, latest); err != nil {
		logger.Error("TokenManager:Store:RetryError", "user_id", conn.UserID, "provider", conn.Provider, "error", err)
		return nil, fmt.Errorf("save refreshed token: %w", err)
	}
	return latest, nil
}

// invalidate flips is_valid off after a rejected refresh. If a concurrent refresh
// already stored a fresh token (for example after refresh-token rotation) that
// connector is returned instead and nothing is invalidated.
func (m *TokenManager) invalidate(ctx context.Context, conn *entity.CalendarConnector) *entity.CalendarConnector {
	target := *conn
	for attempt := 0; attempt < 2; attempt++ {
		target.IsValid = false
		err := m.repo.UpdateCredential(ctx, &target)
		if err == nil {
			m.notifyReconnect(ctx, conn.UserID, conn.Provider)
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			logger.Error("TokenManager:Invalidate:Error", "user_id", conn.UserID, "provider", conn.Provider, "error", err)
			return nil
		}

		latest, err := m.repo.GetConnector(ctx, conn.UserID, conn.Provider)
		if err != nil || !latest.HasCredential() || !latest.IsActive {
			return nil
		}
		if latest.IsValid && !latest.NeedsRefresh(m.now(), m.buffer) {
			return latest
		}
		if !latest.IsValid {
			return nil
		}
		target = *latest
	}
	return nil
}

func (m *TokenManager) notifyReconnect(ctx context.Context, userID uuid.UUID, provider string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyReconnectRequired(ctx, userID, provider); err != nil {
		logger.Warn("TokenManager:NotifyReconnect:Error", "user_id", userID, "provider", provider, "error", err)
	}
}

func applyToken(conn *entity.CalendarConnector, tok *oauth2.Token, refreshedAt time.Time) {
	conn.AccessToken = tok.AccessToken
	// Providers may omit refresh_token on refresh; keep the one on file.
	if tok.RefreshToken != "" {
		conn.RefreshToken = tok.RefreshToken
	}
	conn.ExpiresIn = expiresInSeconds(tok, refreshedAt)
	conn.ExpiresAt = refreshedAt.Add(time.Duration(conn.ExpiresIn) * time.Second)
	conn.IsValid = true
}

func expiresInSeconds(tok *oauth2.Token, refreshedAt time.Time) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if v, ok := tok.Extra("expires_in").(float64); ok && v > 0 {
		return int64(v)
	}
	if !tok.Expiry.IsZero() {
		if d := tok.Expiry.Sub(refreshedAt); d > 0 {
			return int64(d / time.Second)
		}
	}
	return defaultExpiresIn
}

// isRejection reports whether the token endpoint refused the grant.
// Transport errors, timeouts, 408, 429 and 5xx answers are transient.
func isRejection(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return false
	}
	code := re.Response.StatusCode
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
