package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	EventUserRegistered    = "user.registered"
	EventUserVerified      = "user.verified"
	EventAcceptanceChanged = "acceptance.changed"
	EventMessageReceived   = "message.received"
	EventMessageDeleted    = "message.deleted"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// publish keys every record by user so one inbox's events stay ordered on a partition.
func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes user.registered events. The email is masked before it gets here.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Username     string    `json:"username"`
		MaskedEmail  string    `json:"masked_email,omitempty"`
		RegisteredAt time.Time `json:"registered_at"`
		CodeExpires  time.Time `json:"code_expires_at"`
		Reclaimed    bool      `json:"reclaimed"`
	}{
		UserID:       event.UserID,
		Username:     event.Username,
		MaskedEmail:  event.MaskedEmail,
		RegisteredAt: event.RegisteredAt.UTC(),
		CodeExpires:  event.CodeExpires.UTC(),
		Reclaimed:    event.Reclaimed,
	}

	return p.publish(ctx, event.EventID, EventUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishUserVerified publishes user.verified events.
func (p *EventPublisher) PublishUserVerified(ctx context.Context, event domain.UserVerifiedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		Username   string    `json:"username"`
		VerifiedAt time.Time `json:"verified_at"`
	}{
		UserID:     event.UserID,
		Username:   event.Username,
		VerifiedAt: event.VerifiedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventUserVerified, event.UserID, event.VerifiedAt, payload)
}

// PublishAcceptanceChanged publishes acceptance.changed events.
func (p *EventPublisher) PublishAcceptanceChanged(ctx context.Context, event domain.AcceptanceChangedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		Accepting bool      `json:"accepting"`
		ChangedAt time.Time `json:"changed_at"`
	}{
		UserID:    event.UserID,
		Accepting: event.Accepting,
		ChangedAt: event.ChangedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventAcceptanceChanged, event.UserID, event.ChangedAt, payload)
}

// PublishMessageReceived publishes message.received events. Content and sender data are never included.
func (p *EventPublisher) PublishMessageReceived(ctx context.Context, event domain.MessageReceivedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		MessageID  string    `json:"message_id"`
		ReceivedAt time.Time `json:"received_at"`
	}{
		UserID:     event.UserID,
		MessageID:  event.MessageID,
		ReceivedAt: event.ReceivedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventMessageReceived, event.UserID, event.ReceivedAt, payload)
}

// PublishMessageDeleted publishes message.deleted events.
func (p *EventPublisher) PublishMessageDeleted(ctx context.Context, event domain.MessageDeletedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		MessageID string    `json:"message_id"`
		DeletedAt time.Time `json:"deleted_at"`
	}{
		UserID:    event.UserID,
		MessageID: event.MessageID,
		DeletedAt: event.DeletedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventMessageDeleted, event.UserID, event.DeletedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
