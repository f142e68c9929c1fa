package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"winetour-api/core/logger"
	"winetour-api/modules/booking/dto"
	"winetour-api/modules/booking/entity"
	"winetour-api/modules/booking/repository"
	caldto "winetour-api/modules/calendar/dto"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CalendarSync is the calendar collaborator. Implementations never fail:
// a zero EventRef or false means the calendar was not updated.
type CalendarSync interface {
	AddBookingToCalendar(ctx context.Context, userID uuid.UUID, event *caldto.EventData) caldto.EventRef
	UpdateBookingInCalendar(ctx context.Context, userID uuid.UUID, ref caldto.EventRef, event *caldto.EventData) bool
	DeleteBookingFromCalendar(ctx context.Context, userID uuid.UUID, ref caldto.EventRef) bool
}

// CalendarSyncHandler consumes the booking calendar tasks. Tasks for the same
// booking run one at a time, each on a freshly loaded booking.
type CalendarSyncHandler struct {
	repo     repository.BookingRepository
	calendar CalendarSync
	locks    *bookingLocks
}

func NewCalendarSyncHandler(repo repository.BookingRepository, calendar CalendarSync) *CalendarSyncHandler {
	return &CalendarSyncHandler{repo: repo, calendar: calendar, locks: newBookingLocks()}
}

func (h *CalendarSyncHandler) HandleCreate(ctx context.Context, t *asynq.Task) error {
	return h.run(ctx, t, func(booking *entity.Booking) error {
		if booking.IsCancelled() || booking.CalendarEventID != "" {
			logger.Info("CalendarSyncHandler:HandleCreate:Skip", "booking_id", booking.ID, "status", booking.Status)
			return nil
		}
		return h.create(ctx, booking)
	})
}

// HandleUpdate patches the event. A booking whose first sync failed gets its event created instead.
func (h *CalendarSyncHandler) HandleUpdate(ctx context.Context, t *asynq.Task) error {
	return h.run(ctx, t, func(booking *entity.Booking) error {
		if booking.IsCancelled() {
			return nil
		}
		if booking.CalendarEventID == "" {
			return h.create(ctx, booking)
		}

		status := entity.SyncFailed
		if h.calendar.UpdateBookingInCalendar(ctx, booking.VendorID, eventRef(booking), ToEventData(booking)) {
			status = entity.SyncSynced
		}
		logger.Info("CalendarSyncHandler:HandleUpdate:Done", "booking_id", booking.ID, "provider", booking.CalendarProvider, "sync_status", status)
		return h.repo.UpdateSyncState(ctx, booking.ID, booking.CalendarEventID, booking.CalendarProvider, status)
	})
}

func (h *CalendarSyncHandler) HandleDelete(ctx context.Context, t *asynq.Task) error {
	return h.run(ctx, t, func(booking *entity.Booking) error {
		if booking.CalendarEventID == "" {
			return h.repo.UpdateSyncState(ctx, booking.ID, "", "", entity.SyncRemoved)
		}
		return h.remove(ctx, booking.ID, booking.VendorID, eventRef(booking))
	})
}

// create records the new event before re-reading the booking; a booking
// cancelled during the provider call gets its event removed again.
func (h *CalendarSyncHandler) create(ctx context.Context, booking *entity.Booking) error {
	ref := h.calendar.AddBookingToCalendar(ctx, booking.VendorID, ToEventData(booking))
	if ref.IsZero() {
		logger.Warn("CalendarSyncHandler:create:Failed", "booking_id", booking.ID)
		return h.repo.UpdateSyncState(ctx, booking.ID, "", "", entity.SyncFailed)
	}
	logger.Info("CalendarSyncHandler:create:Done", "booking_id", booking.ID, "provider", ref.Provider, "event_id", ref.ID)
	if err := h.repo.UpdateSyncState(ctx, booking.ID, ref.ID, ref.Provider, entity.SyncSynced); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		logger.Warn("CalendarSyncHandler:create:BookingGone", "booking_id", booking.ID, "event_id", ref.ID)
		h.calendar.DeleteBookingFromCalendar(ctx, booking.VendorID, ref)
		return nil
	}

	current, err := h.repo.GetByID(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.calendar.DeleteBookingFromCalendar(ctx, booking.VendorID, ref)
			return nil
		}
		return err
	}
	if !current.IsCancelled() {
		return nil
	}
	logger.Info("CalendarSyncHandler:create:CancelledMeanwhile", "booking_id", booking.ID, "event_id", ref.ID)
	return h.remove(ctx, booking.ID, booking.VendorID, ref)
}

// remove deletes the event; on failure the reference is kept for a later attempt.
func (h *CalendarSyncHandler) remove(ctx context.Context, id, vendorID uuid.UUID, ref caldto.EventRef) error {
	if !h.calendar.DeleteBookingFromCalendar(ctx, vendorID, ref) {
		logger.Warn("CalendarSyncHandler:remove:Failed", "booking_id", id, "provider", ref.Provider)
		return h.repo.UpdateSyncState(ctx, id, ref.ID, ref.Provider, entity.SyncFailed)
	}
	logger.Info("CalendarSyncHandler:remove:Done", "booking_id", id, "provider", ref.Provider)
	return h.repo.UpdateSyncState(ctx, id, "", "", entity.SyncRemoved)
}

// run decodes the payload, takes the booking's lock and hands the current
// booking to fn. A booking that no longer exists is skipped.
func (h *CalendarSyncHandler) run(ctx context.Context, t *asynq.Task, fn func(*entity.Booking) error) error {
	var payload dto.SyncTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	unlock := h.locks.lock(payload.BookingID)
	defer unlock()

	booking, err := h.repo.GetByID(ctx, payload.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("CalendarSyncHandler:run:BookingGone", "type", t.Type(), "booking_id", payload.BookingID)
			return nil
		}
		return err
	}
	return fn(booking)
}

func eventRef(b *entity.Booking) caldto.EventRef {
	return caldto.EventRef{ID: b.CalendarEventID, Provider: b.CalendarProvider}
}

// bookingLocks hands out one mutex per booking id, dropped once unused.
type bookingLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*bookingLock
}

type bookingLock struct {
	sync.Mutex
	refs int
}

func newBookingLocks() *bookingLocks {
	return &bookingLocks{locks: make(map[uuid.UUID]*bookingLock)}
}

func (l *bookingLocks) lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	bl, ok := l.locks[id]
	if !ok {
		bl = &bookingLock{}
		l.locks[id] = bl
	}
	bl.refs++
	l.mu.Unlock()

	bl.Lock()
	return func() {
		bl.Unlock()
		l.mu.Lock()
		bl.refs--
		if bl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// ToEventData describes a booking as a calendar event with the guest as attendee.
func ToEventData(b *entity.Booking) *caldto.EventData {
	description := b.Description
	if description != "" {
		description += "\n\n"
	}
	description += "Booking reference: " + b.Reference

	event := &caldto.EventData{
		Title:       b.Title,
		Description: description,
		Location:    b.Location,
		StartTime:   b.StartTime.Format(dto.BookingTimeLayout),
		EndTime:     b.EndTime.Format(dto.BookingTimeLayout),
		TimeZone:    b.TimeZone,
	}
	if b.GuestEmail != "" {
		event.Attendees = []caldto.Attendee{{Email: b.GuestEmail, Name: b.GuestName}}
	}
	return event
}
