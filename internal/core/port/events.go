package port

import (
	"context"

	"github.com/arklim/anon-inbox/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserVerified(ctx context.Context, event domain.UserVerifiedEvent) error
	PublishAcceptanceChanged(ctx context.Context, event domain.AcceptanceChangedEvent) error
	PublishMessageReceived(ctx context.Context, event domain.MessageReceivedEvent) error
	PublishMessageDeleted(ctx context.Context, event domain.MessageDeletedEvent) error
}
