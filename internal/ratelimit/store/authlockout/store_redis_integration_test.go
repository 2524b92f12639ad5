//go:build integration

package authlockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"leaddesk/internal/ratelimit/models"
	"leaddesk/pkg/testutil/containers"
)

func TestRedisAuthLockoutStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	suite.Run(t, &LockoutStoreSuite{
		NewStore: func() lockoutStore {
			require.NoError(t, rc.FlushAll(context.Background()))
			return NewRedis(rc.Client)
		},
	})
}

func TestRedisAuthLockoutStore_TTLFollowsFirstFailure(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client)
	ctx := context.Background()
	key := models.NewAuthLockoutKey("203.0.113.3")

	_, err := store.RecordFailure(ctx, key, time.Minute)
	require.NoError(t, err)
	_, err = store.RecordFailure(ctx, key, time.Hour)
	require.NoError(t, err)

	ttl, err := rc.Client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)

	until := time.Now().Add(10 * time.Minute)
	require.NoError(t, store.Lock(ctx, key, until))
	ttl, err = rc.Client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute, "lock extends the key lifetime")
}
