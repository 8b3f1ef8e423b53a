package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	base := []zap.Field{
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	}
	p.logger.Info("stub event published", append(base, fields...)...)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent(EventUserRegistered, event.UserID, event.RegisteredAt,
		zap.String("username", event.Username),
		zap.String("email", event.MaskedEmail),
		zap.Bool("reclaimed", event.Reclaimed),
	)
	return nil
}

// PublishUserVerified logs user.verified events.
func (p *StubPublisher) PublishUserVerified(_ context.Context, event domain.UserVerifiedEvent) error {
	p.logEvent(EventUserVerified, event.UserID, event.VerifiedAt, zap.String("username", event.Username))
	return nil
}

// PublishAcceptanceChanged logs acceptance.changed events.
func (p *StubPublisher) PublishAcceptanceChanged(_ context.Context, event domain.AcceptanceChangedEvent) error {
	p.logEvent(EventAcceptanceChanged, event.UserID, event.ChangedAt, zap.Bool("accepting", event.Accepting))
	return nil
}

// PublishMessageReceived logs message.received events.
func (p *StubPublisher) PublishMessageReceived(_ context.Context, event domain.MessageReceivedEvent) error {
	p.logEvent(EventMessageReceived, event.UserID, event.ReceivedAt, zap.String("message_id", event.MessageID))
	return nil
}

// PublishMessageDeleted logs message.deleted events.
func (p *StubPublisher) PublishMessageDeleted(_ context.Context, event domain.MessageDeletedEvent) error {
	p.logEvent(EventMessageDeleted, event.UserID, event.DeletedAt, zap.String("message_id", event.MessageID))
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
