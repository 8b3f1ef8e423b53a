package usecase

import (
	"context"
	"errors"
	"time"

	uuid "github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/repository"
)

const (
	tracerName    = "github.com/arklim/anon-inbox/internal/usecase"
	summaryWindow = 7 * 24 * time.Hour
)

// Rejection reasons reported to metrics.
const (
	RejectUnknownRecipient = "unknown_recipient"
	RejectNotAccepting     = "not_accepting"
	RejectInvalidContent   = "invalid_content"
)

// InboxSummary aggregates the dashboard counters of an inbox.
type InboxSummary struct {
	Total     int
	LastWeek  int
	Accepting bool
}

// InboxService accepts anonymous messages and lets owners curate their inbox.
type InboxService struct {
	users    port.UserRepository
	messages port.MessageRepository
	events   port.EventPublisher
	metrics  port.MetricsRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewInboxService constructs an InboxService.
func NewInboxService(users port.UserRepository, messages port.MessageRepository, events port.EventPublisher, metrics port.MetricsRecorder, logger *zap.Logger) *InboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboxService{
		users:    users,
		messages: messages,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *InboxService) WithClock(clock func() time.Time) *InboxService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Send delivers content to the inbox of targetUsername. No sender identity is taken or stored.
func (s *InboxService) Send(ctx context.Context, targetUsername, content string) (domain.Message, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "inbox.send")
	defer span.End()

	msg, err := s.send(ctx, targetUsername, content)
	if err != nil {
		span.SetAttributes(attribute.String("inbox.error_kind", KindOf(err)))
		if KindOf(err) == KindStoreUnavailable || KindOf(err) == KindInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, "send failed")
		}
		return domain.Message{}, err
	}
	span.SetAttributes(attribute.String("inbox.message_id", msg.ID))
	return msg, nil
}

func (s *InboxService) send(ctx context.Context, targetUsername, content string) (domain.Message, error) {
	username, err := NormalizeUsername(targetUsername)
	if err != nil {
		s.reject(RejectUnknownRecipient)
		return domain.Message{}, ErrNotFound
	}

	recipient, err := s.users.GetByIdentifier(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.reject(RejectUnknownRecipient)
			return domain.Message{}, ErrNotFound
		}
		return domain.Message{}, storeError("lookup recipient", err)
	}
	if recipient.Username != username || !recipient.IsVerified {
		s.reject(RejectUnknownRecipient)
		return domain.Message{}, ErrNotFound
	}
	if !recipient.IsAcceptingMessages {
		s.reject(RejectNotAccepting)
		return domain.Message{}, ErrNotAccepting
	}

	content, err = normalizeContent(content)
	if err != nil {
		s.reject(RejectInvalidContent)
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		UserID:    recipient.ID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrNotAccepting) {
			s.reject(RejectNotAccepting)
			return domain.Message{}, ErrNotAccepting
		}
		return domain.Message{}, storeError("append message", err)
	}

	if s.metrics != nil {
		s.metrics.MessageReceived()
	}
	if s.events != nil {
		event := domain.MessageReceivedEvent{
			EventID:    uuid.NewString(),
			UserID:     msg.UserID,
			MessageID:  msg.ID,
			ReceivedAt: msg.CreatedAt,
		}
		if err := s.events.PublishMessageReceived(ctx, event); err != nil {
			s.logger.Warn("publish message received failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	return msg, nil
}

// List returns the caller's messages, newest first.
func (s *InboxService) List(ctx context.Context, caller domain.Caller) ([]domain.Message, error) {
	if caller.IsZero() {
		return nil, ErrUnauthenticated
	}
	messages, err := s.messages.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, storeError("list messages", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// Summary returns message counters and the acceptance flag of the caller.
func (s *InboxService) Summary(ctx context.Context, caller domain.Caller) (InboxSummary, error) {
	if caller.IsZero() {
		return InboxSummary{}, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return InboxSummary{}, ErrNotFound
		}
		return InboxSummary{}, storeError("lookup user", err)
	}
	total, err := s.messages.CountSince(ctx, caller.UserID, time.Time{})
	if err != nil {
		return InboxSummary{}, storeError("count messages", err)
	}
	lastWeek, err := s.messages.CountSince(ctx, caller.UserID, s.now().Add(-summaryWindow))
	if err != nil {
		return InboxSummary{}, storeError("count recent messages", err)
	}
	return InboxSummary{Total: total, LastWeek: lastWeek, Accepting: user.IsAcceptingMessages}, nil
}

// Delete removes one of the caller's messages. Malformed, foreign and missing ids all yield ErrNotFound.
func (s *InboxService) Delete(ctx context.Context, caller domain.Caller, messageID string) error {
	if caller.IsZero() {
		return ErrUnauthenticated
	}
	id, err := uuid.Parse(messageID)
	if err != nil {
		return ErrNotFound
	}

	if err := s.messages.DeleteOwned(ctx, caller.UserID, id.String()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storeError("delete message", err)
	}

	if s.metrics != nil {
		s.metrics.MessageDeleted()
	}
	if s.events != nil {
		event := domain.MessageDeletedEvent{
			EventID:   uuid.NewString(),
			UserID:    caller.UserID,
			MessageID: id.String(),
			DeletedAt: s.now(),
		}
		if err := s.events.PublishMessageDeleted(ctx, event); err != nil {
			s.logger.Warn("publish message deleted failed", zap.String("message_id", id.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *InboxService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.MessageRejected(reason)
	}
}
