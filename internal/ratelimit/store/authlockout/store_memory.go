package authlockout

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"leaddesk/internal/ratelimit/models"
	"leaddesk/pkg/requestcontext"
)

// InMemoryAuthLockoutStore keeps lockout records in a TTL cache, so windows
// and locks disappear on their own. Pure I/O: lock decisions live in the service.
type InMemoryAuthLockoutStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func New() *InMemoryAuthLockoutStore {
	return &InMemoryAuthLockoutStore{
		cache: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (s *InMemoryAuthLockoutStore) Get(_ context.Context, identifier string) (*models.AuthLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(identifier)
	if !ok {
		return nil, nil
	}
	return copyRecord(v.(*models.AuthLockout)), nil
}

// RecordFailure counts one failure. A new record expires ttl after its first
// failure.
func (s *InMemoryAuthLockoutStore) RecordFailure(ctx context.Context, identifier string, ttl time.Duration) (*models.AuthLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	if v, ok := s.cache.Get(identifier); ok {
		record := v.(*models.AuthLockout)
		record.FailureCount++
		record.LastFailureAt = now
		return copyRecord(record), nil
	}

	record := &models.AuthLockout{
		Identifier:     identifier,
		FailureCount:   1,
		FirstFailureAt: now,
		LastFailureAt:  now,
	}
	s.cache.Set(identifier, record, ttl)
	return copyRecord(record), nil
}

// Lock marks the record locked until the given time and keeps it alive that long.
func (s *InMemoryAuthLockoutStore) Lock(ctx context.Context, identifier string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := until.Sub(requestcontext.Now(ctx))
	v, ok := s.cache.Get(identifier)
	if !ok || remaining <= 0 {
		return nil
	}
	record := v.(*models.AuthLockout)
	record.LockedUntil = &until
	s.cache.Set(identifier, record, remaining)
	return nil
}

func (s *InMemoryAuthLockoutStore) Clear(_ context.Context, identifier string) error {
	s.cache.Delete(identifier)
	return nil
}

func copyRecord(r *models.AuthLockout) *models.AuthLockout {
	out := *r
	if r.LockedUntil != nil {
		until := *r.LockedUntil
		out.LockedUntil = &until
	}
	return &out
}
