package entity

import (
	"time"

	"github.com/google/uuid"
)

// OAuthState binds a pending connect flow to the user who started it.
type OAuthState struct {
	ID        uuid.UUID `db:"id"`
	State     string    `db:"state"`
	UserID    uuid.UUID `db:"user_id"`
	Provider  string    `db:"provider"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}
