package repository

import (
	"context"
	"database/sql"
	"errors"

	"winetour-api/core/logger"
	"winetour-api/modules/calendar/entity"
)

// SaveOAuthState stores a pending connect flow
func (r *calendarRepository) SaveOAuthState(ctx context.Context, state *entity.OAuthState) error {
	query := `
		INSERT INTO oauth_states (id, state, user_id, provider, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (state)
		DO UPDATE SET user_id = $3, provider = $4, expires_at = $5
	`
	err := r.db.ExecContext(ctx, query, state.ID, state.State, state.UserID, state.Provider, state.ExpiresAt)
	if err != nil {
		logger.Error("CalendarRepository:SaveOAuthState:Error", "error", err, "provider", state.Provider)
		return err
	}
	return nil
}

// ConsumeOAuthState deletes the state and returns it, or nil if unknown or expired.
func (r *calendarRepository) ConsumeOAuthState(ctx context.Context, state string) (*entity.OAuthState, error) {
	var oauthState entity.OAuthState
	query := `
		DELETE FROM oauth_states
		WHERE state = $1 AND expires_at > NOW()
		RETURNING id, state, user_id, provider, expires_at, created_at
	`
	err := r.db.GetContext(ctx, &oauthState, query, state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("CalendarRepository:ConsumeOAuthState:Error", "error", err)
		return nil, err
	}
	return &oauthState, nil
}

// CleanupExpiredOAuthStates removes expired OAuth state tokens
func (r *calendarRepository) CleanupExpiredOAuthStates(ctx context.Context) error {
	query := `DELETE FROM oauth_states WHERE expires_at < NOW()`
	err := r.db.ExecContext(ctx, query)
	if err != nil {
		logger.Error("CalendarRepository:CleanupExpiredOAuthStates:Error", "error", err)
		return err
	}
	return nil
}
