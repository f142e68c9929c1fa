package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"winetour-api/core/database"
	"winetour-api/core/logger"
	"winetour-api/core/secret"
	"winetour-api/modules/calendar/entity"

	"github.com/google/uuid"
)

var (
	// ErrVersionConflict means another writer changed the connector since it was read.
	ErrVersionConflict = errors.New("calendar connector was modified concurrently")
	ErrNotFound        = errors.New("calendar connector not found")
)

type CalendarRepository interface {
	// Calendar connectors
	GetConnector(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnector, error)
	GetConnectorsByUserID(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnector, error)
	UpsertConnector(ctx context.Context, conn *entity.CalendarConnector) (*entity.CalendarConnector, error)
	UpdateCredential(ctx context.Context, conn *entity.CalendarConnector) error
	SetActive(ctx context.Context, userID uuid.UUID, provider string, active bool) error

	// OAuth connect state
	SaveOAuthState(ctx context.Context, state *entity.OAuthState) error
	ConsumeOAuthState(ctx context.Context, state string) (*entity.OAuthState, error)
	CleanupExpiredOAuthStates(ctx context.Context) error
}

type calendarRepository struct {
	db     database.IDatabase
	sealer secret.Sealer
}

func NewCalendarRepository(db database.IDatabase, sealer secret.Sealer) CalendarRepository {
	return &calendarRepository{db: db, sealer: sealer}
}

// connectorRow mirrors calendar_connectors; expires_at is nullable.
type connectorRow struct {
	ID           uuid.UUID    `db:"id"`
	UserID       uuid.UUID    `db:"user_id"`
	Provider     string       `db:"provider"`
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	ExpiresIn    int64        `db:"expires_in"`
	ExpiresAt    sql.NullTime `db:"expires_at"`
	IsValid      bool         `db:"is_valid"`
	IsActive     bool         `db:"is_active"`
	Version      int64        `db:"version"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

const connectorColumns = `id, user_id, provider, access_token, refresh_token, expires_in, expires_at,
		is_valid, is_active, version, created_at, updated_at`

func (r *calendarRepository) toEntity(row *connectorRow) (*entity.CalendarConnector, error) {
	accessToken, err := r.sealer.Open(row.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	refreshToken, err := r.sealer.Open(row.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}

	conn := &entity.CalendarConnector{
		UserID:   row.UserID,
		Provider: row.Provider,
		Version:  row.Version,
		ConnectorCredential: entity.ConnectorCredential{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    row.ExpiresIn,
			IsValid:      row.IsValid,
			IsActive:     row.IsActive,
		},
	}
	conn.ID = row.ID
	conn.CreatedAt = row.CreatedAt
	conn.UpdatedAt = row.UpdatedAt
	if row.ExpiresAt.Valid {
		conn.ExpiresAt = row.ExpiresAt.Time
	}
	return conn, nil
}

func (r *calendarRepository) sealTokens(conn *entity.CalendarConnector) (string, string, error) {
	access, err := r.sealer.Seal(conn.AccessToken)
	if err != nil {
		return "", "", fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := r.sealer.Seal(conn.RefreshToken)
	if err != nil {
		return "", "", fmt.Errorf("seal refresh token: %w", err)
	}
	return access, refresh, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// GetConnector returns nil, nil when the user never connected the provider.
func (r *calendarRepository) GetConnector(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnector, error) {
	query := `SELECT ` + connectorColumns + `
		FROM calendar_connectors
		WHERE user_id = $1 AND provider = $2
	`
	var row connectorRow
	if err := r.db.GetContext(ctx, &row, query, userID, provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("CalendarRepository:GetConnector:Error", "error", err, "user_id", userID, "provider", provider)
		return nil, err
	}
	return r.toEntity(&row)
}

// GetConnectorsByUserID returns every connector of the user, inactive ones included.
func (r *calendarRepository) GetConnectorsByUserID(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnector, error) {
	query := `SELECT ` + connectorColumns + `
		FROM calendar_connectors
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	var rows []connectorRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		logger.Error("CalendarRepository:GetConnectorsByUserID:Error", "error", err, "user_id", userID)
		return nil, err
	}

	connectors := make([]entity.CalendarConnector, 0, len(rows))
	for i := range rows {
		conn, err := r.toEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, *conn)
	}
	return connectors, nil
}

// UpsertConnector stores the credential of a fresh OAuth connect.
// An empty refresh token keeps the one already on file.
func (r *calendarRepository) UpsertConnector(ctx context.Context, conn *entity.CalendarConnector) (*entity.CalendarConnector, error) {
	access, refresh, err := r.sealTokens(conn)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO calendar_connectors (id, user_id, provider, access_token, refresh_token, expires_in, expires_at,
			is_valid, is_active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, true, 1, NOW(), NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN calendar_connectors.refresh_token
				ELSE EXCLUDED.refresh_token END,
			expires_in = EXCLUDED.expires_in,
			expires_at = EXCLUDED.expires_at,
			is_valid = true,
			is_active = true,
			version = calendar_connectors.version + 1,
			updated_at = NOW()
		RETURNING ` + connectorColumns

	var row connectorRow
	err = r.db.GetContext(ctx, &row, query,
		uuid.New(), conn.UserID, conn.Provider, access, refresh, conn.ExpiresIn, nullTime(conn.ExpiresAt),
	)
	if err != nil {
		logger.Error("CalendarRepository:UpsertConnector:Error", "error", err, "user_id", conn.UserID, "provider", conn.Provider)
		return nil, err
	}
	return r.toEntity(&row)
}

// UpdateCredential writes the credential block if the stored version still matches conn.Version.
// On success conn.Version is advanced; a stale version yields ErrVersionConflict.
func (r *calendarRepository) UpdateCredential(ctx context.Context, conn *entity.CalendarConnector) error {
	access, refresh, err := r.sealTokens(conn)
	if err != nil {
		return err
	}

	query := `
		UPDATE calendar_connectors
		SET access_token = $1, refresh_token = $2, expires_in = $3, expires_at = $4, is_valid = $5,
			version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
	`
	result, err := r.db.ExecResultContext(ctx, query,
		access, refresh, conn.ExpiresIn, nullTime(conn.ExpiresAt), conn.IsValid, conn.ID, conn.Version,
	)
	if err != nil {
		logger.Error("CalendarRepository:UpdateCredential:Error", "error", err, "connector_id", conn.ID)
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	conn.Version++
	return nil
}

// SetActive enables or disables a connector without touching its credential.
func (r *calendarRepository) SetActive(ctx context.Context, userID uuid.UUID, provider string, active bool) error {
	query := `
		UPDATE calendar_connectors
		SET is_active = $1, version = version + 1, updated_at = NOW()
		WHERE user_id = $2 AND provider = $3
	`
	result, err := r.db.ExecResultContext(ctx, query, active, userID, provider)
	if err != nil {
		logger.Error("CalendarRepository:SetActive:Error", "error", err, "user_id", userID, "provider", provider)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
