package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"winetour-api/core/constants"
	appErrors "winetour-api/core/errors"
	"winetour-api/core/logger"
	"winetour-api/core/params"
	"winetour-api/core/queue"
	"winetour-api/core/utils"
	"winetour-api/modules/booking/dto"
	"winetour-api/modules/booking/entity"
	"winetour-api/modules/booking/repository"
	caldto "winetour-api/modules/calendar/dto"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Calendar sync task types.
const (
	TaskCreateEvent = "calendar:booking:create"
	TaskUpdateEvent = "calendar:booking:update"
	TaskDeleteEvent = "calendar:booking:delete"
)

type BookingService interface {
	CreateBooking(ctx context.Context, vendorID uuid.UUID, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	GetBooking(ctx context.Context, vendorID, id uuid.UUID) (*dto.BookingResponse, error)
	GetPublicBooking(ctx context.Context, reference string) (*dto.PublicBookingResponse, error)
	ListBookings(ctx context.Context, vendorID uuid.UUID, queryParams params.QueryParams) (*dto.BookingListResponse, error)
	ConfirmBooking(ctx context.Context, vendorID, id uuid.UUID) (*dto.BookingResponse, error)
	RescheduleBooking(ctx context.Context, vendorID, id uuid.UUID, req *dto.RescheduleBookingRequest) (*dto.BookingResponse, error)
	CancelBooking(ctx context.Context, vendorID, id uuid.UUID) (*dto.BookingResponse, error)
	GetAvailability(ctx context.Context, vendorID uuid.UUID, date string, durationMinutes int) (*dto.AvailabilityResponse, error)
}

type bookingService struct {
	repo            repository.BookingRepository
	queue           queue.Enqueuer
	defaultTimeZone string
	slots           *SlotFinder
}

func NewBookingService(repo repository.BookingRepository, enqueuer queue.Enqueuer, defaultTimeZone string) BookingService {
	if defaultTimeZone == "" {
		defaultTimeZone = constants.DefaultTimeZone
	}
	return &bookingService{
		repo:            repo,
		queue:           enqueuer,
		defaultTimeZone: defaultTimeZone,
		slots:           NewSlotFinder(),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, vendorID uuid.UUID, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	logger.Info("BookingService:CreateBooking:Start", "vendor_id", vendorID)

	start, end, tz, err := s.parseSchedule(req.StartTime, req.EndTime, req.TimeZone)
	if err != nil {
		return nil, err
	}

	booking := &entity.Booking{
		Reference:          utils.GenerateBookingReference(),
		VendorID:           vendorID,
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		Location:           req.Location,
		StartTime:          start,
		EndTime:            end,
		TimeZone:           tz,
		GuestEmail:         strings.ToLower(strings.TrimSpace(req.GuestEmail)),
		GuestName:          req.GuestName,
		Status:             entity.StatusPending,
		CalendarSyncStatus: entity.SyncPending,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		logger.Error("BookingService:CreateBooking:Create:Error", "error", err)
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to create booking", err)
	}

	s.enqueueSync(ctx, TaskCreateEvent, booking)

	logger.Info("BookingService:CreateBooking:Success", "booking_id", booking.ID, "reference", booking.Reference)
	return toBookingResponse(booking), nil
}

func (s *bookingService) GetBooking(ctx context.Context, vendorID, id uuid.UUID) (*dto.BookingResponse, error) {
	booking, err := s.ownedBooking(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	return toBookingResponse(booking), nil
}

func (s *bookingService) GetPublicBooking(ctx context.Context, reference string) (*dto.PublicBookingResponse, error) {
	booking, err := s.repo.GetByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NewAppError(appErrors.ErrNotFound, "Booking not found", nil)
		}
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to load booking", err)
	}

	return &dto.PublicBookingResponse{
		Reference: booking.Reference,
		Title:     booking.Title,
		Location:  booking.Location,
		StartTime: booking.StartTime.Format(dto.BookingTimeLayout),
		EndTime:   booking.EndTime.Format(dto.BookingTimeLayout),
		TimeZone:  booking.TimeZone,
		Status:    booking.Status,
	}, nil
}

func (s *bookingService) ListBookings(ctx context.Context, vendorID uuid.UUID, queryParams params.QueryParams) (*dto.BookingListResponse, error) {
	page, err := s.repo.ListByVendor(ctx, vendorID, queryParams)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to list bookings", err)
	}

	items := make([]dto.BookingResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *toBookingResponse(&page.Items[i]))
	}
	return &dto.BookingListResponse{
		Items:      items,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
	}, nil
}

// ConfirmBooking accepts a pending booking. The calendar event already exists, so nothing is synced.
func (s *bookingService) ConfirmBooking(ctx context.Context, vendorID, id uuid.UUID) (*dto.BookingResponse, error) {
	booking, err := s.ownedBooking(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if booking.IsCancelled() {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidInput, "Cancelled booking cannot be confirmed", nil)
	}
	if booking.Status == entity.StatusConfirmed {
		return toBookingResponse(booking), nil
	}

	booking.Status = entity.StatusConfirmed
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to confirm booking", err)
	}

	logger.Info("BookingService:ConfirmBooking:Success", "booking_id", booking.ID)
	return toBookingResponse(booking), nil
}

func (s *bookingService) RescheduleBooking(ctx context.Context, vendorID, id uuid.UUID, req *dto.RescheduleBookingRequest) (*dto.BookingResponse, error) {
	booking, err := s.ownedBooking(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if booking.IsCancelled() {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidInput, "Cancelled booking cannot be rescheduled", nil)
	}

	tz := req.TimeZone
	if tz == "" {
		tz = booking.TimeZone
	}
	start, end, tz, err := s.parseSchedule(req.StartTime, req.EndTime, tz)
	if err != nil {
		return nil, err
	}

	booking.StartTime = start
	booking.EndTime = end
	booking.TimeZone = tz
	if req.Location != "" {
		booking.Location = req.Location
	}
	booking.CalendarSyncStatus = entity.SyncPending
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to reschedule booking", err)
	}

	s.enqueueSync(ctx, TaskUpdateEvent, booking)

	logger.Info("BookingService:RescheduleBooking:Success", "booking_id", booking.ID)
	return toBookingResponse(booking), nil
}

func (s *bookingService) CancelBooking(ctx context.Context, vendorID, id uuid.UUID) (*dto.BookingResponse, error) {
	booking, err := s.ownedBooking(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if booking.IsCancelled() {
		return toBookingResponse(booking), nil
	}

	booking.Status = entity.StatusCancelled
	booking.CalendarSyncStatus = entity.SyncPending
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to cancel booking", err)
	}

	s.enqueueSync(ctx, TaskDeleteEvent, booking)

	logger.Info("BookingService:CancelBooking:Success", "booking_id", booking.ID)
	return toBookingResponse(booking), nil
}

// GetAvailability lists the free slots of a vendor day, in the vendor's wall-clock time.
func (s *bookingService) GetAvailability(ctx context.Context, vendorID uuid.UUID, date string, durationMinutes int) (*dto.AvailabilityResponse, error) {
	day, err := time.Parse(dto.DateLayout, date)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidInput, "date must be YYYY-MM-DD", err)
	}
	if durationMinutes == 0 {
		durationMinutes = constants.DefaultVisitMinutes
	}
	if durationMinutes < 15 || durationMinutes > 8*60 {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidInput, "duration must be between 15 and 480 minutes", nil)
	}

	bookings, err := s.repo.ListActiveBetween(ctx, vendorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to load availability", err)
	}
	busy := make([]TimeSlot, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, TimeSlot{Start: b.StartTime, End: b.EndTime})
	}

	free := s.slots.FreeSlots(day, time.Duration(durationMinutes)*time.Minute, busy)
	resp := &dto.AvailabilityResponse{
		Date:            date,
		DurationMinutes: durationMinutes,
		Slots:           make([]dto.AvailabilitySlot, 0, len(free)),
	}
	for _, slot := range free {
		resp.Slots = append(resp.Slots, dto.AvailabilitySlot{
			StartTime: slot.Start.Format(dto.BookingTimeLayout),
			EndTime:   slot.End.Format(dto.BookingTimeLayout),
		})
	}
	return resp, nil
}

func (s *bookingService) ownedBooking(ctx context.Context, vendorID, id uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NewAppError(appErrors.ErrNotFound, "Booking not found", nil)
		}
		return nil, appErrors.NewAppError(appErrors.ErrInternalServer, "Failed to load booking", err)
	}
	// Other vendors' bookings are reported as missing.
	if booking.VendorID != vendorID {
		return nil, appErrors.NewAppError(appErrors.ErrNotFound, "Booking not found", nil)
	}
	return booking, nil
}

// parseSchedule validates start/end/tz the same way the calendar gateway will and
// returns the wall-clock times to persist.
func (s *bookingService) parseSchedule(startTime, endTime, timeZone string) (time.Time, time.Time, string, error) {
	probe := &caldto.EventData{Title: "booking", StartTime: startTime, EndTime: endTime, TimeZone: timeZone}
	if err := probe.Normalize(s.defaultTimeZone); err != nil {
		return time.Time{}, time.Time{}, "", appErrors.NewAppError(appErrors.ErrInvalidRequestData, err.Error(), err)
	}

	start, err := time.Parse(dto.BookingTimeLayout, probe.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, "", appErrors.NewAppError(appErrors.ErrInvalidRequestData, "Invalid start_time", err)
	}
	end, err := time.Parse(dto.BookingTimeLayout, probe.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, "", appErrors.NewAppError(appErrors.ErrInvalidRequestData, "Invalid end_time", err)
	}
	return start, end, probe.TimeZone, nil
}

// enqueueSync hands the calendar work to the worker. A failure only marks the
// booking as not synced; the booking itself stands.
func (s *bookingService) enqueueSync(ctx context.Context, taskType string, booking *entity.Booking) {
	payload, err := json.Marshal(dto.SyncTaskPayload{BookingID: booking.ID})
	if err == nil {
		err = s.queue.Enqueue(ctx, asynq.NewTask(taskType, payload),
			asynq.MaxRetry(0),
			asynq.Queue(queue.QueueCalendar),
		)
	}
	if err == nil {
		return
	}

	logger.Warn("BookingService:enqueueSync:Error", "type", taskType, "booking_id", booking.ID, "error", err)
	booking.CalendarSyncStatus = entity.SyncFailed
	if err := s.repo.UpdateSyncState(ctx, booking.ID, booking.CalendarEventID, booking.CalendarProvider, entity.SyncFailed); err != nil {
		logger.Error("BookingService:enqueueSync:UpdateSyncState:Error", "booking_id", booking.ID, "error", err)
	}
}

func toBookingResponse(b *entity.Booking) *dto.BookingResponse {
	return &dto.BookingResponse{
		ID:                 b.ID,
		Reference:          b.Reference,
		Title:              b.Title,
		Description:        b.Description,
		Location:           b.Location,
		StartTime:          b.StartTime.Format(dto.BookingTimeLayout),
		EndTime:            b.EndTime.Format(dto.BookingTimeLayout),
		TimeZone:           b.TimeZone,
		GuestEmail:         b.GuestEmail,
		GuestName:          b.GuestName,
		Status:             b.Status,
		CalendarEventID:    b.CalendarEventID,
		CalendarProvider:   b.CalendarProvider,
		CalendarSyncStatus: b.CalendarSyncStatus,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
	}
}
