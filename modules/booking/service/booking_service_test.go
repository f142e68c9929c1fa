package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"winetour-api/core/errors"
	"winetour-api/core/params"
	"winetour-api/modules/booking/dto"
	"winetour-api/modules/booking/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() *dto.CreateBookingRequest {
	return &dto.CreateBookingRequest{
		Title:      "Cellar tour and tasting",
		Location:   "Domaine des Trois Chênes",
		StartTime:  "2026-06-12T10:00:00",
		EndTime:    "2026-06-12T11:30:00",
		GuestEmail: " Guest@Example.com ",
		GuestName:  "Camille",
	}
}

func requireAppCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateBookingPersistsThenEnqueues(t *testing.T) {
	repo := newMemRepo()
	q := &recordingQueue{}
	svc := NewBookingService(repo, q, "Europe/Paris")
	vendorID := uuid.New()

	resp, err := svc.CreateBooking(context.Background(), vendorID, sampleRequest())
	require.NoError(t, err)

	assert.Regexp(t, `^WT-[0-9A-Z]{8}$`, resp.Reference)
	assert.Equal(t, entity.StatusPending, resp.Status)
	assert.Equal(t, entity.SyncPending, resp.CalendarSyncStatus)
	assert.Equal(t, "Europe/Paris", resp.TimeZone)
	assert.Equal(t, "2026-06-12T10:00:00", resp.StartTime)
	assert.Equal(t, "guest@example.com", resp.GuestEmail)

	stored := repo.get(resp.ID)
	assert.Equal(t, vendorID, stored.VendorID)

	require.Equal(t, []string{TaskCreateEvent}, q.types())
	var payload dto.SyncTaskPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	assert.Equal(t, resp.ID, payload.BookingID)
	assert.Len(t, q.opts[0], 2)
}

func TestCreateBookingRejectsBadSchedule(t *testing.T) {
	cases := map[string]func(*dto.CreateBookingRequest){
		"end before start": func(r *dto.CreateBookingRequest) { r.EndTime = "2026-06-12T09:00:00" },
		"unknown zone":     func(r *dto.CreateBookingRequest) { r.TimeZone = "Mars/Olympus" },
		"garbage time":     func(r *dto.CreateBookingRequest) { r.StartTime = "tomorrow" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			q := &recordingQueue{}
			svc := NewBookingService(newMemRepo(), q, "")
			req := sampleRequest()
			mutate(req)

			_, err := svc.CreateBooking(context.Background(), uuid.New(), req)
			requireAppCode(t, err, errors.ErrInvalidRequestData)
			assert.Empty(t, q.tasks)
		})
	}
}

func TestCreateBookingSurvivesQueueOutage(t *testing.T) {
	repo := newMemRepo()
	svc := NewBookingService(repo, &recordingQueue{err: errDown}, "")

	resp, err := svc.CreateBooking(context.Background(), uuid.New(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, entity.SyncFailed, resp.CalendarSyncStatus)
	assert.Equal(t, entity.SyncFailed, repo.get(resp.ID).CalendarSyncStatus)
}

func TestCreateBookingStorageFailure(t *testing.T) {
	repo := newMemRepo()
	repo.failSave = errDown
	q := &recordingQueue{}
	svc := NewBookingService(repo, q, "")

	_, err := svc.CreateBooking(context.Background(), uuid.New(), sampleRequest())
	requireAppCode(t, err, errors.ErrInternalServer)
	assert.Empty(t, q.tasks)
}

func TestOtherVendorsBookingIsNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := NewBookingService(repo, &recordingQueue{}, "")
	resp, err := svc.CreateBooking(context.Background(), uuid.New(), sampleRequest())
	require.NoError(t, err)

	_, err = svc.GetBooking(context.Background(), uuid.New(), resp.ID)
	requireAppCode(t, err, errors.ErrNotFound)

	_, err = svc.CancelBooking(context.Background(), uuid.New(), resp.ID)
	requireAppCode(t, err, errors.ErrNotFound)
}

func TestRescheduleEnqueuesUpdate(t *testing.T) {
	repo := newMemRepo()
	q := &recordingQueue{}
	svc := NewBookingService(repo, q, "")
	vendorID := uuid.New()
	created, err := svc.CreateBooking(context.Background(), vendorID, sampleRequest())
	require.NoError(t, err)

	resp, err := svc.RescheduleBooking(context.Background(), vendorID, created.ID, &dto.RescheduleBookingRequest{
		StartTime: "2026-06-13T15:00:00",
		EndTime:   "2026-06-13T16:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-06-13T15:00:00", resp.StartTime)
	assert.Equal(t, created.TimeZone, resp.TimeZone)
	assert.Equal(t, created.Location, resp.Location)
	assert.Equal(t, []string{TaskCreateEvent, TaskUpdateEvent}, q.types())
}

func TestCancelledBookingCannotBeRescheduled(t *testing.T) {
	repo := newMemRepo()
	q := &recordingQueue{}
	svc := NewBookingService(repo, q, "")
	vendorID := uuid.New()
	created, err := svc.CreateBooking(context.Background(), vendorID, sampleRequest())
	require.NoError(t, err)

	cancelled, err := svc.CancelBooking(context.Background(), vendorID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, cancelled.Status)

	_, err = svc.RescheduleBooking(context.Background(), vendorID, created.ID, &dto.RescheduleBookingRequest{
		StartTime: "2026-06-13T15:00:00",
		EndTime:   "2026-06-13T16:00:00",
	})
	requireAppCode(t, err, errors.ErrInvalidInput)

	// a second cancel is a no-op
	_, err = svc.CancelBooking(context.Background(), vendorID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{TaskCreateEvent, TaskDeleteEvent}, q.types())
}

func TestConfirmBooking(t *testing.T) {
	repo := newMemRepo()
	q := &recordingQueue{}
	svc := NewBookingService(repo, q, "")
	vendorID := uuid.New()
	created, err := svc.CreateBooking(context.Background(), vendorID, sampleRequest())
	require.NoError(t, err)

	resp, err := svc.ConfirmBooking(context.Background(), vendorID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, resp.Status)
	assert.Equal(t, []string{TaskCreateEvent}, q.types())
}

func TestPublicLookupByReference(t *testing.T) {
	repo := newMemRepo()
	svc := NewBookingService(repo, &recordingQueue{}, "")
	created, err := svc.CreateBooking(context.Background(), uuid.New(), sampleRequest())
	require.NoError(t, err)

	resp, err := svc.GetPublicBooking(context.Background(), " "+created.Reference)
	require.NoError(t, err)
	assert.Equal(t, created.Title, resp.Title)

	_, err = svc.GetPublicBooking(context.Background(), "WT-NOPE0000")
	requireAppCode(t, err, errors.ErrNotFound)
}

func TestListBookings(t *testing.T) {
	repo := newMemRepo()
	svc := NewBookingService(repo, &recordingQueue{}, "")
	vendorID := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := svc.CreateBooking(context.Background(), vendorID, sampleRequest())
		require.NoError(t, err)
	}
	_, err := svc.CreateBooking(context.Background(), uuid.New(), sampleRequest())
	require.NoError(t, err)

	list, err := svc.ListBookings(context.Background(), vendorID, params.QueryParams{PageNumber: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, list.TotalItems)
	assert.Equal(t, 2, list.TotalPages)
}

func TestGetAvailabilitySkipsActiveBookings(t *testing.T) {
	repo := newMemRepo()
	svc := NewBookingService(repo, &recordingQueue{}, "")
	vendorID := uuid.New()
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, vendorID, sampleRequest())
	require.NoError(t, err)

	late := sampleRequest()
	late.StartTime, late.EndTime = "2026-06-12T15:00:00", "2026-06-12T16:00:00"
	cancelled, err := svc.CreateBooking(ctx, vendorID, late)
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, vendorID, cancelled.ID)
	require.NoError(t, err)

	resp, err := svc.GetAvailability(ctx, vendorID, "2026-06-12", 0)
	require.NoError(t, err)
	assert.Equal(t, 60, resp.DurationMinutes)
	require.Len(t, resp.Slots, 13)
	assert.Equal(t, "2026-06-12T09:00:00", resp.Slots[0].StartTime)
	assert.Equal(t, "2026-06-12T11:30:00", resp.Slots[1].StartTime)

	other, err := svc.GetAvailability(ctx, uuid.New(), "2026-06-12", 60)
	require.NoError(t, err)
	assert.Len(t, other.Slots, 17)
}

func TestGetAvailabilityRejectsBadInput(t *testing.T) {
	svc := NewBookingService(newMemRepo(), &recordingQueue{}, "")

	_, err := svc.GetAvailability(context.Background(), uuid.New(), "12/06/2026", 60)
	requireAppCode(t, err, errors.ErrInvalidInput)

	_, err = svc.GetAvailability(context.Background(), uuid.New(), "2026-06-12", 5)
	requireAppCode(t, err, errors.ErrInvalidInput)
}
