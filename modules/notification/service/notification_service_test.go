package service

import (
	"context"
	"testing"
	"time"

	"winetour-api/core/database"
	"winetour-api/core/params"
	"winetour-api/modules/notification/entity"
	"winetour-api/modules/notification/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*NotificationService, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewDatabase(sqlx.NewDb(mockDB, "sqlmock"))
	return NewNotificationService(repository.NewNotificationRepository(db)), mock
}

func TestNotifyReconnectRequired(t *testing.T) {
	svc, mock := newTestService(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(userID, entity.TypeCalendarReconnectRequired, "provider", "google").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))

	require.NoError(t, svc.NotifyReconnectRequired(context.Background(), userID, "google"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifyReconnectRequiredKeepsOneUnread(t *testing.T) {
	svc, mock := newTestService(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(userID, entity.TypeCalendarReconnectRequired, "provider", "orange").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, svc.NotifyReconnectRequired(context.Background(), userID, "orange"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMyNotifications(t *testing.T) {
	svc, mock := newTestService(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id, user_id, title").
		WithArgs(userID, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "message", "type", "data", "is_read", "created_at", "updated_at"}).
			AddRow(uuid.New().String(), userID.String(), "Reconnect your Google calendar", "msg",
				entity.TypeCalendarReconnectRequired, []byte(`{"provider":"google"}`), false, time.Now(), time.Now()))

	list, err := svc.GetMyNotifications(context.Background(), userID, params.QueryParams{PageNumber: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "google", list.Items[0].Data["provider"])
	assert.Equal(t, 1, list.TotalPages)
}

func TestMarkAsReadSkipsEmpty(t *testing.T) {
	svc, mock := newTestService(t)
	require.NoError(t, svc.MarkAsRead(context.Background(), uuid.New(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	svc, mock := newTestService(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE user_id = \\$1 AND is_read = false").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := svc.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
