package entity

import (
	"time"

	"winetour-api/core/entity"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Calendar sync states of a booking.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncFailed  = "failed"
	SyncRemoved = "removed"
)

// Booking is a guest reservation on a vendor's schedule.
// StartTime and EndTime are wall-clock values in TimeZone.
type Booking struct {
	entity.BaseEntity
	Reference          string    `db:"reference" json:"reference"`
	VendorID           uuid.UUID `db:"vendor_id" json:"vendor_id"`
	Title              string    `db:"title" json:"title"`
	Description        string    `db:"description" json:"description"`
	Location           string    `db:"location" json:"location"`
	StartTime          time.Time `db:"start_time" json:"start_time"`
	EndTime            time.Time `db:"end_time" json:"end_time"`
	TimeZone           string    `db:"time_zone" json:"time_zone"`
	GuestEmail         string    `db:"guest_email" json:"guest_email"`
	GuestName          string    `db:"guest_name" json:"guest_name"`
	Status             string    `db:"status" json:"status"`
	CalendarEventID    string    `db:"calendar_event_id" json:"calendar_event_id"`
	CalendarProvider   string    `db:"calendar_provider" json:"calendar_provider"`
	CalendarSyncStatus string    `db:"calendar_sync_status" json:"calendar_sync_status"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

type PaginatedBookingEntity = entity.Pagination[Booking]
