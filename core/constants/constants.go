package constants

import "time"

const (
	DefaultTimeout = 30 * time.Second

	// Database
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 10
	DatabaseConnMaxLifetime = 30 // minutes

	// Echo context keys
	ContextTokenData = "token_data"
	ContextUserID    = "user_id"

	// Redis keys
	RedisKeyBlacklistedToken = "auth:blacklist:"
	RedisKeyLoginAttempts    = "auth:login_attempts:"

	// Login throttling
	MaxLoginAttempts   = 5
	LoginBlockDuration = 15 * time.Minute

	// Pagination
	DefaultPageNumber = 1
	DefaultPageSize   = 20
	MaxPageSize       = 100

	// Calendar
	DefaultTimeZone      = "Europe/Paris"
	TokenRefreshBuffer   = 5 * time.Minute
	OAuthStateTTL        = 10 * time.Minute
	CalendarHTTPTimeout  = 30 * time.Second
	DefaultReminderMins  = 60
	OAuthStateByteLength = 32

	// Booking
	DefaultVisitMinutes = 60
)
