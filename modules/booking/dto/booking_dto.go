package dto

import (
	"github.com/google/uuid"
)

// BookingTimeLayout is the wall-clock layout of booking start and end times.
const BookingTimeLayout = "2006-01-02T15:04:05"

const DateLayout = "2006-01-02"

type CreateBookingRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"max=4000"`
	Location    string `json:"location,omitempty" validate:"max=512"`
	StartTime   string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05"`
	EndTime     string `json:"end_time" validate:"required,datetime=2006-01-02T15:04:05"`
	TimeZone    string `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	GuestEmail  string `json:"guest_email" validate:"required,email"`
	GuestName   string `json:"guest_name,omitempty" validate:"max=255"`
}

// RescheduleBookingRequest moves a booking. Empty optional fields keep their value.
type RescheduleBookingRequest struct {
	StartTime string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05"`
	EndTime   string `json:"end_time" validate:"required,datetime=2006-01-02T15:04:05"`
	TimeZone  string `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	Location  string `json:"location,omitempty" validate:"max=512"`
}

type BookingResponse struct {
	ID                 uuid.UUID `json:"id"`
	Reference          string    `json:"reference"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Location           string    `json:"location,omitempty"`
	StartTime          string    `json:"start_time"`
	EndTime            string    `json:"end_time"`
	TimeZone           string    `json:"time_zone"`
	GuestEmail         string    `json:"guest_email"`
	GuestName          string    `json:"guest_name,omitempty"`
	Status             string    `json:"status"`
	CalendarEventID    string    `json:"calendar_event_id,omitempty"`
	CalendarProvider   string    `json:"calendar_provider,omitempty"`
	CalendarSyncStatus string    `json:"calendar_sync_status"`
	CreatedAt          string    `json:"created_at"`
}

// PublicBookingResponse is what a guest sees when looking a booking up by reference.
type PublicBookingResponse struct {
	Reference string `json:"reference"`
	Title     string `json:"title"`
	Location  string `json:"location,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	TimeZone  string `json:"time_zone"`
	Status    string `json:"status"`
}

type BookingListResponse struct {
	Items      []BookingResponse `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPages int               `json:"total_pages"`
	PageNumber int               `json:"page_number"`
	PageSize   int               `json:"page_size"`
}

type AvailabilitySlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AvailabilityResponse lists the free visit slots of one vendor day.
type AvailabilityResponse struct {
	Date            string             `json:"date"`
	DurationMinutes int                `json:"duration_minutes"`
	Slots           []AvailabilitySlot `json:"slots"`
}

// SyncTaskPayload is the asynq payload of the calendar sync tasks.
type SyncTaskPayload struct {
	BookingID uuid.UUID `json:"booking_id"`
}
