package repository

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"winetour-api/core/database"
	"winetour-api/core/secret"
	"winetour-api/modules/calendar/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTokenKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

var connectorCols = []string{
	"id", "user_id", "provider", "access_token", "refresh_token", "expires_in", "expires_at",
	"is_valid", "is_active", "version", "created_at", "updated_at",
}

func newTestRepo(t *testing.T, sealer secret.Sealer) (CalendarRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	if sealer == nil {
		sealer, err = secret.NewSealer("")
		require.NoError(t, err)
	}
	db := database.NewDatabase(sqlx.NewDb(mockDB, "sqlmock"))
	return NewCalendarRepository(db, sealer), mock
}

// sealedArg matches a sealed, non-plaintext token argument.
type sealedArg struct{ plain string }

func (a sealedArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "v1:") && !strings.Contains(s, a.plain)
}

func TestGetConnector(t *testing.T) {
	repo, mock := newTestRepo(t, nil)
	userID := uuid.New()
	id := uuid.New()
	expiresAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM calendar_connectors WHERE user_id = \\$1 AND provider = \\$2").
		WithArgs(userID, "google").
		WillReturnRows(sqlmock.NewRows(connectorCols).
			AddRow(id.String(), userID.String(), "google", "A1", "R1", 3600, expiresAt, true, true, 3, now, now))

	conn, err := repo.GetConnector(context.Background(), userID, "google")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, id, conn.ID)
	assert.Equal(t, "A1", conn.AccessToken)
	assert.Equal(t, "R1", conn.RefreshToken)
	assert.Equal(t, expiresAt, conn.ExpiresAt)
	assert.Equal(t, int64(3), conn.Version)
	assert.True(t, conn.Usable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConnectorMissingIsNotAnError(t *testing.T) {
	repo, mock := newTestRepo(t, nil)
	userID := uuid.New()

	mock.ExpectQuery("SELECT .* FROM calendar_connectors").
		WithArgs(userID, "orange").
		WillReturnRows(sqlmock.NewRows(connectorCols))

	conn, err := repo.GetConnector(context.Background(), userID, "orange")
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestGetConnectorNullExpiry(t *testing.T) {
	repo, mock := newTestRepo(t, nil)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM calendar_connectors").
		WillReturnRows(sqlmock.NewRows(connectorCols).
			AddRow(uuid.NewString(), userID.String(), "microsoft", "A1", "", 0, nil, true, true, 1, now, now))

	conn, err := repo.GetConnector(context.Background(), userID, "microsoft")
	require.NoError(t, err)
	assert.True(t, conn.ExpiresAt.IsZero())
	assert.Empty(t, conn.RefreshToken)
}

func TestUpsertConnectorSealsTokens(t *testing.T) {
	sealer, err := secret.NewSealer(testTokenKey)
	require.NoError(t, err)
	repo, mock := newTestRepo(t, sealer)

	userID := uuid.New()
	now := time.Now()
	sealedAccess, err := sealer.Seal("A1")
	require.NoError(t, err)
	sealedRefresh, err := sealer.Seal("R1")
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO calendar_connectors .* ON CONFLICT \\(user_id, provider\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), userID, "google", sealedArg{"A1"}, sealedArg{"R1"}, int64(3600), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(connectorCols).
			AddRow(uuid.NewString(), userID.String(), "google", sealedAccess, sealedRefresh, 3600, now.Add(time.Hour), true, true, 1, now, now))

	conn, err := repo.UpsertConnector(context.Background(), &entity.CalendarConnector{
		UserID:   userID,
		Provider: "google",
		ConnectorCredential: entity.ConnectorCredential{
			AccessToken:  "A1",
			RefreshToken: "R1",
			ExpiresIn:    3600,
			ExpiresAt:    now.Add(time.Hour),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "A1", conn.AccessToken)
	assert.Equal(t, "R1", conn.RefreshToken)
	assert.True(t, conn.IsValid)
	assert.True(t, conn.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCredentialVersionGuard(t *testing.T) {
	repo, mock := newTestRepo(t, nil)
	conn := &entity.CalendarConnector{
		Version: 4,
		ConnectorCredential: entity.ConnectorCredential{
			AccessToken:  "A2",
			RefreshToken: "R1",
			ExpiresIn:    3600,
			ExpiresAt:    time.Now().Add(time.Hour),
			IsValid:      true,
		},
	}
	conn.ID = uuid.New()

	mock.ExpectExec("UPDATE calendar_connectors SET .* WHERE id = \\$6 AND version = \\$7").
		WithArgs("A2", "R1", int64(3600), sqlmock.AnyArg(), true, conn.ID, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateCredential(context.Background(), conn))
	assert.Equal(t, int64(5), conn.Version)

	mock.ExpectExec("UPDATE calendar_connectors").
		WithArgs("A2", "R1", int64(3600), sqlmock.AnyArg(), true, conn.ID, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateCredential(context.Background(), conn)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(5), conn.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActive(t *testing.T) {
	repo, mock := newTestRepo(t, nil)
	userID := uuid.New()

	mock.ExpectExec("UPDATE calendar_connectors SET is_active = \\$1").
		WithArgs(false, userID, "orange").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetActive(context.Background(), userID, "orange", false))

	mock.ExpectExec("UPDATE calendar_connectors SET is_active = \\$1").
		WithArgs(true, userID, "google").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetActive(context.Background(), userID, "google", true), ErrNotFound)
}

func TestConsumeOAuthState(t *testing.T) {
	repo, mock := newTestRepo(t, nil)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("DELETE FROM oauth_states WHERE state = \\$1 AND expires_at > NOW\\(\\) RETURNING").
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "state", "user_id", "provider", "expires_at", "created_at"}).
			AddRow(uuid.NewString(), "abc", userID.String(), "google", now.Add(time.Minute), now))

	state, err := repo.ConsumeOAuthState(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, userID, state.UserID)
	assert.Equal(t, "google", state.Provider)

	mock.ExpectQuery("DELETE FROM oauth_states").
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "state", "user_id", "provider", "expires_at", "created_at"}))

	state, err = repo.ConsumeOAuthState(context.Background(), "abc")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestSaveOAuthState(t *testing.T) {
	repo, mock := newTestRepo(t, nil)
	st := &entity.OAuthState{ID: uuid.New(), State: "abc", UserID: uuid.New(), Provider: "microsoft", ExpiresAt: time.Now().Add(10 * time.Minute)}

	mock.ExpectExec("INSERT INTO oauth_states").
		WithArgs(st.ID, "abc", st.UserID, "microsoft", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveOAuthState(context.Background(), st))
	assert.NoError(t, mock.ExpectationsWereMet())
}
