package port

import (
	"context"
	"time"
)

// AttemptCounter tracks failed attempts per subject inside a fixed window that opens on the first failure.
type AttemptCounter interface {
	Count(ctx context.Context, subject string) (int, error)
	Increment(ctx context.Context, subject string, window time.Duration) (int, error)
	Reset(ctx context.Context, subject string) error
}
