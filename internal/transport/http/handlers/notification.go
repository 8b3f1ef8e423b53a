package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/infra/logger"
)

// LoggingNotificationDispatcher records verification dispatches in the log instead of sending mail.
// The code itself is only logged in development.
type LoggingNotificationDispatcher struct {
	logger *zap.Logger
	isDev  bool
}

// NewLoggingNotificationDispatcher constructs a notifier backed by structured logging.
func NewLoggingNotificationDispatcher(log *zap.Logger, isDev bool) *LoggingNotificationDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingNotificationDispatcher{logger: log, isDev: isDev}
}

// SendVerificationCode logs the dispatch with a masked address.
func (d *LoggingNotificationDispatcher) SendVerificationCode(_ context.Context, notice port.VerificationNotice) error {
	fields := []zap.Field{
		zap.String("username", notice.Username),
		zap.String("email", logger.MaskEmail(notice.Email)),
		zap.Time("expires_at", notice.ExpiresAt),
	}
	if d.isDev {
		fields = append(fields, zap.String("dev_code", notice.Code))
	}

	d.logger.Info("dispatch verification code", fields...)
	return nil
}

var _ port.VerificationNotifier = (*LoggingNotificationDispatcher)(nil)
