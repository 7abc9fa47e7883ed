package constants

import "time"

// Session and context keys
const (
	SessionCookieName = "task_session"
	ContextKeyUserID  = "user_id"
	ContextKeyEmail   = "email"
	APIKeyHeader      = "apikey"
)

// Validation limits
const (
	MinPasswordLength = 6
	MaxTitleLength    = 255
	MaxAvatarBytes    = 5 << 20
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Email confirmation
const (
	ConfirmationTypeSignup    = "signup"
	ConfirmationRedirectDelay = 3 * time.Second
)

// Realtime
const (
	RealtimeHeartbeatInterval = 15 * time.Second
	RealtimeSubscriberBuffer  = 64
)

// AI suggestions
const MaxAISuggestedTasks = 10
