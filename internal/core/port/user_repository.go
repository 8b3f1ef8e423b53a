package port

import (
	"context"
	"time"

	"github.com/arklim/anon-inbox/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	ReplaceUnverified(ctx context.Context, user domain.User) error
	UpdateVerificationCode(ctx context.Context, id string, codeHash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id string, verifiedAt time.Time) error
	SetAcceptingMessages(ctx context.Context, id string, accepting bool) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// MessageRepository exposes persistence behavior for inbox messages.
type MessageRepository interface {
	Append(ctx context.Context, msg domain.Message) error
	ListByUser(ctx context.Context, userID string) ([]domain.Message, error)
	DeleteOwned(ctx context.Context, userID, messageID string) error
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}
