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

const defaultCooldownPrefix = "cooldown"

// CooldownRepository tracks short-lived per-subject locks, used to space out verification code resends.
type CooldownRepository struct {
	client *red.Client
	prefix string
}

// NewCooldownRepository wires a Redis client into a cooldown repository.
func NewCooldownRepository(client *red.Client, keyPrefix string) *CooldownRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCooldownPrefix
	}

	return &CooldownRepository{client: client, prefix: prefix}
}

// Acquire starts a cooldown for subject unless one is already running.
// When the cooldown is active it reports false and the time left.
func (r *CooldownRepository) Acquire(ctx context.Context, subject string, ttl time.Duration) (bool, time.Duration, error) {
	if ttl <= 0 {
		return false, 0, errors.New("ttl must be positive")
	}

	key := r.key(subject)
	if key == "" {
		return false, 0, errors.New("subject must not be empty")
	}

	acquired, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis setnx cooldown: %w", err)
	}
	if acquired {
		return true, 0, nil
	}

	remaining, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis pttl cooldown: %w", err)
	}
	if remaining < 0 {
		remaining = 0
	}

	return false, remaining, nil
}

// Release clears a running cooldown.
func (r *CooldownRepository) Release(ctx context.Context, subject string) error {
	key := r.key(subject)
	if key == "" {
		return errors.New("subject must not be empty")
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cooldown: %w", err)
	}

	return nil
}

func (r *CooldownRepository) key(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed)
}

var _ port.CooldownStore = (*CooldownRepository)(nil)
