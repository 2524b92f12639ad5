package authlockout

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"leaddesk/internal/ratelimit/models"
	"leaddesk/pkg/requestcontext"
)

type lockoutStore interface {
	Get(ctx context.Context, identifier string) (*models.AuthLockout, error)
	RecordFailure(ctx context.Context, identifier string, ttl time.Duration) (*models.AuthLockout, error)
	Lock(ctx context.Context, identifier string, until time.Time) error
	Clear(ctx context.Context, identifier string) error
}

// LockoutStoreSuite runs the same behaviour checks against every backend.
type LockoutStoreSuite struct {
	suite.Suite
	NewStore func() lockoutStore

	store lockoutStore
	ctx   context.Context
	now   time.Time
}

func (s *LockoutStoreSuite) SetupTest() {
	s.store = s.NewStore()
	s.now = time.Now().UTC().Truncate(time.Millisecond)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *LockoutStoreSuite) TestGetMissingReturnsNil() {
	record, err := s.store.Get(s.ctx, models.NewAuthLockoutKey("198.51.100.1"))
	s.Require().NoError(err)
	s.Nil(record)
}

func (s *LockoutStoreSuite) TestRecordFailureCounts() {
	key := models.NewAuthLockoutKey("198.51.100.2")

	first, err := s.store.RecordFailure(s.ctx, key, time.Minute)
	s.Require().NoError(err)
	s.Equal(1, first.FailureCount)
	s.True(first.FirstFailureAt.Equal(s.now))

	later := requestcontext.WithTime(context.Background(), s.now.Add(time.Second))
	second, err := s.store.RecordFailure(later, key, time.Minute)
	s.Require().NoError(err)
	s.Equal(2, second.FailureCount)
	s.True(second.FirstFailureAt.Equal(s.now), "first failure time is kept")
	s.True(second.LastFailureAt.Equal(s.now.Add(time.Second)))
	s.Nil(second.LockedUntil)

	got, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(2, got.FailureCount)
}

func (s *LockoutStoreSuite) TestLockAndClear() {
	key := models.NewAuthLockoutKey("198.51.100.3")
	_, err := s.store.RecordFailure(s.ctx, key, time.Minute)
	s.Require().NoError(err)

	until := s.now.Add(5 * time.Minute)
	s.Require().NoError(s.store.Lock(s.ctx, key, until))

	got, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Require().NotNil(got.LockedUntil)
	s.True(got.LockedUntil.Equal(until))
	s.True(got.IsLockedAt(s.now))

	s.Require().NoError(s.store.Clear(s.ctx, key))
	got, err = s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *LockoutStoreSuite) TestLockInThePastIsIgnored() {
	key := models.NewAuthLockoutKey("198.51.100.4")
	_, err := s.store.RecordFailure(s.ctx, key, time.Minute)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Lock(s.ctx, key, s.now.Add(-time.Second)))
	got, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Nil(got.LockedUntil)
}

func (s *LockoutStoreSuite) TestKeysAreIndependent() {
	a := models.NewAuthLockoutKey("198.51.100.5")
	b := models.NewAuthLockoutKey("198.51.100.6")
	_, err := s.store.RecordFailure(s.ctx, a, time.Minute)
	s.Require().NoError(err)

	got, err := s.store.Get(s.ctx, b)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *LockoutStoreSuite) TestConcurrentFailuresAreAllCounted() {
	key := models.NewAuthLockoutKey("198.51.100.7")
	const n = 20

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.RecordFailure(s.ctx, key, time.Minute)
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(n, got.FailureCount)
}
