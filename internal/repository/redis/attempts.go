package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/anon-inbox/internal/core/port"
)

const defaultAttemptPrefix = "attempts"

// AttemptRepository counts failed verification attempts in plain Redis counters.
type AttemptRepository struct {
	client *red.Client
	prefix string
}

// NewAttemptRepository wires a Redis client into an attempt counter.
func NewAttemptRepository(client *red.Client, keyPrefix string) *AttemptRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultAttemptPrefix
	}

	return &AttemptRepository{client: client, prefix: prefix}
}

// Count returns the failures recorded for subject in the current window.
func (r *AttemptRepository) Count(ctx context.Context, subject string) (int, error) {
	key := r.key(subject)
	if key == "" {
		return 0, errors.New("subject must not be empty")
	}

	n, err := r.client.Get(ctx, key).Int()
	if errors.Is(err, red.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get attempts: %w", err)
	}

	return n, nil
}

// Increment records one failure. The first failure starts the window.
func (r *AttemptRepository) Increment(ctx context.Context, subject string, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	key := r.key(subject)
	if key == "" {
		return 0, errors.New("subject must not be empty")
	}

	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr attempts: %w", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("redis expire attempts: %w", err)
		}
	}

	return int(n), nil
}

// Reset forgets every failure recorded for subject.
func (r *AttemptRepository) Reset(ctx context.Context, subject string) error {
	key := r.key(subject)
	if key == "" {
		return errors.New("subject must not be empty")
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del attempts: %w", err)
	}

	return nil
}

func (r *AttemptRepository) key(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed)
}

var _ port.AttemptCounter = (*AttemptRepository)(nil)
