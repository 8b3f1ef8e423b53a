package port

import (
	"context"
	"time"
)

// CooldownStore enforces a minimum spacing between repeated actions on the same subject.
type CooldownStore interface {
	Acquire(ctx context.Context, subject string, ttl time.Duration) (bool, time.Duration, error)
	Release(ctx context.Context, subject string) error
}
