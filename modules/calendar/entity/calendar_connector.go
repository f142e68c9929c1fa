package entity

import (
	"time"

	"winetour-api/core/entity"

	"github.com/google/uuid"
)

// ConnectorCredential is the provider credential block of a connector.
type ConnectorCredential struct {
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresIn    int64     `db:"expires_in" json:"expires_in"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	IsValid      bool      `db:"is_valid" json:"is_valid"`
	IsActive     bool      `db:"is_active" json:"is_active"`
}

// CalendarConnector links one user to one external calendar provider.
// At most one row exists per (user_id, provider).
type CalendarConnector struct {
	entity.BaseEntity
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	Provider string    `db:"provider" json:"provider"` // "orange" | "microsoft" | "google"
	Version  int64     `db:"version" json:"-"`
	ConnectorCredential
}

func (CalendarConnector) TableName() string {
	return "calendar_connectors"
}

// HasCredential reports whether an access token is on file.
func (c *CalendarConnector) HasCredential() bool {
	return c != nil && c.AccessToken != ""
}

// Usable reports whether the connector may issue tokens.
func (c *CalendarConnector) Usable() bool {
	return c.HasCredential() && c.IsValid && c.IsActive
}

// NeedsRefresh reports whether the access token expires within buffer of now.
// A zero ExpiresAt means the provider gave no expiry and the token is used as is.
func (c *CalendarConnector) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt.Add(-buffer))
}

// Status returns the lifecycle state shown to users.
func (c *CalendarConnector) Status() string {
	switch {
	case !c.HasCredential() || !c.IsActive:
		return StatusDisconnected
	case !c.IsValid:
		return StatusInvalid
	default:
		return StatusConnected
	}
}

const (
	StatusDisconnected = "disconnected"
	StatusConnected    = "connected"
	StatusInvalid      = "invalid"
)
