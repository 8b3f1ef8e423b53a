package domain

import "time"

const (
	// MessageMinLength is the minimum number of characters an anonymous message may carry.
	MessageMinLength = 10
	// MessageMaxLength is the maximum number of characters an anonymous message may carry.
	MessageMaxLength = 1000
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	PasswordAlgo        string
	VerifyCodeHash      string
	VerifyCodeExpiresAt time.Time
	IsVerified          bool
	IsAcceptingMessages bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// VerificationExpired reports whether the outstanding verification code is past its expiry at now.
func (u User) VerificationExpired(now time.Time) bool {
	return now.After(u.VerifyCodeExpiresAt)
}

// Sanitized returns a copy with credential material stripped.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.VerifyCodeHash = ""
	return u
}

// Message is an anonymous note stored in exactly one user's inbox.
// It intentionally carries no sender attributes.
type Message struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// Caller is the authenticated principal resolved by the session gate.
// Use cases accept it explicitly instead of reading ambient request state.
type Caller struct {
	UserID   string
	Username string
}

// IsZero reports whether the caller carries no identity.
func (c Caller) IsZero() bool {
	return c.UserID == ""
}
