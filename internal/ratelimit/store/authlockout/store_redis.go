package authlockout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"leaddesk/internal/ratelimit/models"
	"leaddesk/pkg/requestcontext"
)

const (
	fieldCount          = "count"
	fieldFirstFailureAt = "first_failure_at"
	fieldLastFailureAt  = "last_failure_at"
	fieldLockedUntil    = "locked_until"
)

// RedisAuthLockoutStore shares lockout state between instances. Each record
// is a hash whose key expiry implements the counting window.
type RedisAuthLockoutStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisAuthLockoutStore {
	return &RedisAuthLockoutStore{client: client}
}

func (s *RedisAuthLockoutStore) Get(ctx context.Context, identifier string) (*models.AuthLockout, error) {
	fields, err := s.client.HGetAll(ctx, identifier).Result()
	if err != nil {
		return nil, fmt.Errorf("get auth lockout: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseRecord(identifier, fields)
}

// RecordFailure increments the counter in one MULTI/EXEC. The expiry is only
// set by the first failure (EXPIRE NX).
func (s *RedisAuthLockoutStore) RecordFailure(ctx context.Context, identifier string, ttl time.Duration) (*models.AuthLockout, error) {
	now := requestcontext.Now(ctx).UnixNano()

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, identifier, fieldCount, 1)
	pipe.HSetNX(ctx, identifier, fieldFirstFailureAt, now)
	pipe.HSet(ctx, identifier, fieldLastFailureAt, now)
	pipe.ExpireNX(ctx, identifier, ttl)
	all := pipe.HGetAll(ctx, identifier)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record auth failure: %w", err)
	}
	return parseRecord(identifier, all.Val())
}

func (s *RedisAuthLockoutStore) Lock(ctx context.Context, identifier string, until time.Time) error {
	remaining := until.Sub(requestcontext.Now(ctx))
	if remaining <= 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, identifier, fieldLockedUntil, until.UnixNano())
	pipe.PExpire(ctx, identifier, remaining)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lock auth lockout: %w", err)
	}
	return nil
}

func (s *RedisAuthLockoutStore) Clear(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, identifier).Err(); err != nil {
		return fmt.Errorf("clear auth lockout: %w", err)
	}
	return nil
}

func parseRecord(identifier string, fields map[string]string) (*models.AuthLockout, error) {
	record := &models.AuthLockout{Identifier: identifier}

	count, err := strconv.Atoi(fields[fieldCount])
	if err != nil {
		return nil, fmt.Errorf("parse failure count: %w", err)
	}
	record.FailureCount = count

	if record.FirstFailureAt, err = parseNanos(fields[fieldFirstFailureAt]); err != nil {
		return nil, err
	}
	if record.LastFailureAt, err = parseNanos(fields[fieldLastFailureAt]); err != nil {
		return nil, err
	}
	if raw, ok := fields[fieldLockedUntil]; ok {
		until, err := parseNanos(raw)
		if err != nil {
			return nil, err
		}
		record.LockedUntil = &until
	}
	return record, nil
}

func parseNanos(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return time.Unix(0, n).UTC(), nil
}
