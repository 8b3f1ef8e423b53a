package domain

import "time"

// UserRegisteredEvent represents the payload for inbox.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	MaskedEmail  string
	RegisteredAt time.Time
	CodeExpires  time.Time
	Reclaimed    bool
}

// UserVerifiedEvent represents the payload for inbox.user.verified messages.
type UserVerifiedEvent struct {
	EventID    string
	UserID     string
	Username   string
	VerifiedAt time.Time
}

// AcceptanceChangedEvent represents the payload for inbox.acceptance.changed messages.
type AcceptanceChangedEvent struct {
	EventID   string
	UserID    string
	Accepting bool
	ChangedAt time.Time
}

// MessageReceivedEvent represents the payload for inbox.message.received messages.
// Only the recipient side is described; there is no sender to describe.
type MessageReceivedEvent struct {
	EventID    string
	UserID     string
	MessageID  string
	ReceivedAt time.Time
}

// MessageDeletedEvent represents the payload for inbox.message.deleted messages.
type MessageDeletedEvent struct {
	EventID   string
	UserID    string
	MessageID string
	DeletedAt time.Time
}

// PasswordContext carries user attributes used to judge password strength.
type PasswordContext struct {
	Username string
	Email    string
}
