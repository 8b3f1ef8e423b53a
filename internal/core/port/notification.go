package port

import (
	"context"
	"time"
)

// VerificationNotice carries what the mail channel needs to deliver a verification code.
type VerificationNotice struct {
	Username  string
	Email     string
	Code      string
	ExpiresAt time.Time
}

// VerificationNotifier delivers verification codes out of band. Delivery is best effort.
type VerificationNotifier interface {
	SendVerificationCode(ctx context.Context, notice VerificationNotice) error
}
