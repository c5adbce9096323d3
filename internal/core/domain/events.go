package domain

import "time"

// UserRegisteredEvent represents the payload for parc.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       int64
	Email        string
	FirstName    string
	LastName     string
	Role         string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// UserLoggedInEvent represents the payload for parc.user.logged_in messages.
type UserLoggedInEvent struct {
	EventID    string
	UserID     int64
	Email      string
	Remembered bool
	IP         *string
	UserAgent  *string
	LoggedInAt time.Time
	Metadata   map[string]any
}

// EmailVerifiedEvent represents the payload for parc.user.email_verified messages.
type EmailVerifiedEvent struct {
	EventID    string
	UserID     int64
	Email      string
	VerifiedAt time.Time
	Metadata   map[string]any
}

// UserStatusChangedEvent represents the payload for parc.user.status_changed messages.
type UserStatusChangedEvent struct {
	EventID   string
	UserID    int64
	Active    bool
	ChangedBy string
	ChangedAt time.Time
	Reason    string
	Metadata  map[string]any
}

// PasswordChangedEvent represents the payload for parc.user.password_changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    int64
	ChangedAt time.Time
	Metadata  map[string]any
}
