package store

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"leaddesk/internal/registration/models"
	id "leaddesk/pkg/domain"
)

// recordStore is the behaviour every backend must share.
type recordStore interface {
	Insert(ctx context.Context, rec models.NewRecord) (*models.Record, error)
	FindAll(ctx context.Context) ([]*models.Record, error)
	DeleteByID(ctx context.Context, recordID id.RecordID) (bool, error)
	Ping(ctx context.Context) error
}

// RecordStoreSuite runs the same contract against each backend. NewStore must
// return an empty store.
type RecordStoreSuite struct {
	suite.Suite
	NewStore func() recordStore
	// MalformedID is an id the backend can never have assigned.
	MalformedID id.RecordID

	ctx   context.Context
	store recordStore
}

func (s *RecordStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
}

func strPtr(v string) *string { return &v }

func (s *RecordStoreSuite) TestInsertAssignsIDAndCreatedAt() {
	before := time.Now().Add(-time.Second)
	rec, err := s.store.Insert(s.ctx, models.NewRecord{
		FullName:     "Jane Doe",
		PhoneNumber:  "18005550199",
		ReferralName: strPtr("Bob"),
	})
	s.Require().NoError(err)
	after := time.Now().Add(time.Second)

	s.NotEmpty(rec.ID)
	s.Equal("Jane Doe", rec.FullName)
	s.Equal("18005550199", rec.PhoneNumber)
	s.Require().NotNil(rec.ReferralName)
	s.Equal("Bob", *rec.ReferralName)
	s.True(rec.CreatedAt.After(before) && rec.CreatedAt.Before(after), "createdAt %v outside call window", rec.CreatedAt)

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(rec.ID, all[0].ID)
	s.True(rec.CreatedAt.Equal(all[0].CreatedAt))
}

func (s *RecordStoreSuite) TestNilReferralRoundTrips() {
	_, err := s.store.Insert(s.ctx, models.NewRecord{FullName: "No Ref", PhoneNumber: "12345"})
	s.Require().NoError(err)

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Nil(all[0].ReferralName)
}

func (s *RecordStoreSuite) TestFindAllNewestFirst() {
	var ids []id.RecordID
	for _, name := range []string{"first", "second", "third"} {
		rec, err := s.store.Insert(s.ctx, models.NewRecord{FullName: name, PhoneNumber: "12345"})
		s.Require().NoError(err)
		ids = append(ids, rec.ID)
	}

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]id.RecordID{ids[2], ids[1], ids[0]}, []id.RecordID{all[0].ID, all[1].ID, all[2].ID})
	for i := 1; i < len(all); i++ {
		s.False(all[i].CreatedAt.After(all[i-1].CreatedAt))
	}
}

func (s *RecordStoreSuite) TestFindAllEmpty() {
	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *RecordStoreSuite) TestDeleteByID() {
	keep, err := s.store.Insert(s.ctx, models.NewRecord{FullName: "keep", PhoneNumber: "12345"})
	s.Require().NoError(err)
	gone, err := s.store.Insert(s.ctx, models.NewRecord{FullName: "gone", PhoneNumber: "67890"})
	s.Require().NoError(err)

	deleted, err := s.store.DeleteByID(s.ctx, gone.ID)
	s.Require().NoError(err)
	s.True(deleted)

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(keep.ID, all[0].ID)

	deleted, err = s.store.DeleteByID(s.ctx, gone.ID)
	s.Require().NoError(err)
	s.False(deleted, "second delete of the same id reports not found")
}

func (s *RecordStoreSuite) TestDeleteMalformedID() {
	deleted, err := s.store.DeleteByID(s.ctx, s.MalformedID)
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *RecordStoreSuite) TestConcurrentInserts() {
	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Insert(s.ctx, models.NewRecord{FullName: "c", PhoneNumber: "12345"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, n)
	seen := make(map[id.RecordID]struct{}, n)
	for _, r := range all {
		seen[r.ID] = struct{}{}
	}
	s.Len(seen, n, "ids are unique")
}

func (s *RecordStoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
