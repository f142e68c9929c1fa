package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider constants
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
	ProviderOrange    = "orange"
)

var Providers = []string{ProviderGoogle, ProviderMicrosoft, ProviderOrange}

func IsValidProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// ========== Calendar Connection DTOs ==========

type CalendarConnectionResponse struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	Status      string `json:"status"`
	IsActive    bool   `json:"is_active"`
	IsValid     bool   `json:"is_valid"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	ConnectedAt string `json:"connected_at"`
}

type CalendarConnectionListResponse struct {
	Connections []CalendarConnectionResponse `json:"connections"`
}

// OAuthURLResponse response with OAuth URL
type OAuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// ========== Calendar Event DTOs ==========

// LocalDateTimeLayout is a naive wall-clock time, interpreted in EventData.TimeZone.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

var ErrInvalidEventData = errors.New("invalid event data")

type Attendee struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name,omitempty"`
}

// EventData is the provider-agnostic description of a calendar event.
type EventData struct {
	Title       string     `json:"title" validate:"required,max=1024"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	StartTime   string     `json:"start_time" validate:"required"`
	EndTime     string     `json:"end_time" validate:"required"`
	TimeZone    string     `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	Attendees   []Attendee `json:"attendees,omitempty" validate:"omitempty,dive"`
}

// Normalize fills the default time zone, canonicalises start/end to LocalDateTimeLayout
// and checks the event is well formed. Errors wrap ErrInvalidEventData.
func (e *EventData) Normalize(defaultTimeZone string) error {
	if e == nil {
		return fmt.Errorf("%w: event is nil", ErrInvalidEventData)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEventData)
	}
	if e.TimeZone == "" {
		e.TimeZone = defaultTimeZone
	}
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil {
		return fmt.Errorf("%w: unknown time zone %q", ErrInvalidEventData, e.TimeZone)
	}

	start, err := parseLocal(e.StartTime, loc)
	if err != nil {
		return fmt.Errorf("%w: start_time: %v", ErrInvalidEventData, err)
	}
	end, err := parseLocal(e.EndTime, loc)
	if err != nil {
		return fmt.Errorf("%w: end_time: %v", ErrInvalidEventData, err)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidEventData)
	}

	for i, a := range e.Attendees {
		if !strings.Contains(a.Email, "@") {
			return fmt.Errorf("%w: attendee %d has no valid email", ErrInvalidEventData, i)
		}
	}

	e.StartTime = start.Format(LocalDateTimeLayout)
	e.EndTime = end.Format(LocalDateTimeLayout)
	return nil
}

func parseLocal(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("is required")
	}
	for _, layout := range []string{LocalDateTimeLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a local date-time (%s)", value, LocalDateTimeLayout)
}

// CalendarEventResponse reports the result of an HTTP-triggered gateway call.
// Synced is false when the calendar integration was unavailable.
type CalendarEventResponse struct {
	EventID  string `json:"event_id,omitempty"`
	Provider string `json:"provider,omitempty"`
	Synced   bool   `json:"synced"`
}

// EventRef identifies a remote event: its id and the provider holding it.
// Update and delete go to Provider; an empty Provider means the user's
// currently preferred provider.
type EventRef struct {
	ID       string
	Provider string
}

// IsZero reports whether no remote event is referenced.
func (r EventRef) IsZero() bool { return r.ID == "" }

// Validate rejects a missing id or an unknown provider name.
func (r EventRef) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidEventData)
	}
	if r.Provider != "" && !IsValidProvider(r.Provider) {
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidEventData, r.Provider)
	}
	return nil
}
