package usecase

import (
	"context"
	"errors"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/repository"
)

// AcceptanceService reads and flips the per-user acceptance flag.
type AcceptanceService struct {
	users   port.UserRepository
	events  port.EventPublisher
	metrics port.MetricsRecorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewAcceptanceService constructs an AcceptanceService.
func NewAcceptanceService(users port.UserRepository, events port.EventPublisher, metrics port.MetricsRecorder, logger *zap.Logger) *AcceptanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcceptanceService{
		users:   users,
		events:  events,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AcceptanceService) WithClock(clock func() time.Time) *AcceptanceService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Get returns whether the caller currently accepts messages.
func (s *AcceptanceService) Get(ctx context.Context, caller domain.Caller) (bool, error) {
	if caller.IsZero() {
		return false, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, storeError("lookup user", err)
	}
	return user.IsAcceptingMessages, nil
}

// Set stores the acceptance flag and returns the stored value. Setting the current value is a no-op success.
func (s *AcceptanceService) Set(ctx context.Context, caller domain.Caller, accepting bool) (bool, error) {
	if caller.IsZero() {
		return false, ErrUnauthenticated
	}
	stored, err := s.users.SetAcceptingMessages(ctx, caller.UserID, accepting)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, storeError("update acceptance", err)
	}

	if s.metrics != nil {
		s.metrics.AcceptanceChanged(stored)
	}
	if s.events != nil {
		event := domain.AcceptanceChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    caller.UserID,
			Accepting: stored,
			ChangedAt: s.now(),
		}
		if err := s.events.PublishAcceptanceChanged(ctx, event); err != nil {
			s.logger.Warn("publish acceptance changed failed", zap.String("user_id", caller.UserID), zap.Error(err))
		}
	}

	return stored, nil
}
