package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"leaddesk/internal/registration/models"
	"leaddesk/internal/registration/service/mocks"
	"leaddesk/internal/registration/store"
	id "leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
	audit "leaddesk/pkg/platform/audit"
	auditmemory "leaddesk/pkg/platform/audit/store/memory"
	"leaddesk/pkg/requestcontext"
	"leaddesk/pkg/testutil"
)

type RegistrationServiceSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	metrics *mocks.MockMetrics
	audit   *auditmemory.InMemoryStore
	service *Service
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-123")
	s.ctx = requestcontext.WithClientMetadata(s.ctx, "203.0.113.9", "test-agent")
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.metrics = mocks.NewMockMetrics(s.ctrl)
	s.audit = auditmemory.NewInMemoryStore()

	svc, err := New(s.store, WithMetrics(s.metrics), WithAuditPublisher(s.audit))
	s.Require().NoError(err)
	s.service = svc
}

func (s *RegistrationServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) TestRegister_StoresNormalizedInputOnce() {
	created := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.store.EXPECT().Insert(gomock.Any(), models.NewRecord{
		FullName:    "Jane Doe",
		PhoneNumber: "18005550199",
	}).Return(&models.Record{
		ID:          "lead-1",
		FullName:    "Jane Doe",
		PhoneNumber: "18005550199",
		CreatedAt:   created,
	}, nil).Times(1)
	s.metrics.EXPECT().IncrementRegistrations().Times(1)

	blank := "   "
	rec, err := s.service.Register(s.ctx, &models.RegisterRequest{
		FullName:     " Jane Doe ",
		PhoneNumber:  "1 (800) 555-0199",
		ReferralName: &blank,
	})
	s.Require().NoError(err)
	s.Equal(id.RecordID("lead-1"), rec.ID)

	events, err := s.audit.ListByAction(s.ctx, audit.EventLeadRegistered)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("lead-1", events[0].Subject)
	s.Equal("req-123", events[0].RequestID)
	s.Equal("203.0.113.9", events[0].IP)
	s.Equal(created, events[0].Timestamp)
}

func (s *RegistrationServiceSuite) TestRegister_MissingFields() {
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Times(0)
	s.metrics.EXPECT().IncrementRegistrations().Times(0)

	for _, req := range []*models.RegisterRequest{
		{FullName: "", PhoneNumber: "18005550199"},
		{FullName: "Jane", PhoneNumber: "  "},
		nil,
	} {
		_, err := s.service.Register(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

func (s *RegistrationServiceSuite) TestRegister_NonDigitPhone() {
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Register(s.ctx, &models.RegisterRequest{FullName: "Jane", PhoneNumber: "abc"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RegistrationServiceSuite) TestRegister_StoreFailure() {
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	s.metrics.EXPECT().IncrementRegistrations().Times(0)

	_, err := s.service.Register(s.ctx, &models.RegisterRequest{FullName: "Jane", PhoneNumber: "12345"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	events, err := s.audit.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *RegistrationServiceSuite) TestPing() {
	s.store.EXPECT().Ping(gomock.Any()).Return(errors.New("down"))
	s.Error(s.service.Ping(s.ctx))
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

// Round trip through the real memory store: the record comes back from
// FindAll with createdAt inside the call window.
func TestRegisterRoundTrip(t *testing.T) {
	recordStore := store.NewInMemoryRecordStore()
	svc, err := New(recordStore)
	require.NoError(t, err)
	ctx := context.Background()

	testutil.Given(t, "an empty store", func(t *testing.T) {
		testutil.When(t, "Jane Doe registers", func(t *testing.T) {
			before := time.Now()
			rec, err := svc.Register(ctx, &models.RegisterRequest{FullName: "Jane Doe", PhoneNumber: "18005550199"})
			require.NoError(t, err)
			after := time.Now()

			testutil.Then(t, "listing returns exactly that record", func(t *testing.T) {
				all, err := recordStore.FindAll(ctx)
				require.NoError(t, err)
				require.Len(t, all, 1)
				assert.Equal(t, rec.ID, all[0].ID)
				assert.Equal(t, "Jane Doe", all[0].FullName)
				assert.Nil(t, all[0].ReferralName)
				assert.False(t, all[0].CreatedAt.Before(before.UTC()))
				assert.False(t, all[0].CreatedAt.After(after.UTC()))
			})
		})

		testutil.When(t, "an invalid registration arrives", func(t *testing.T) {
			_, err := svc.Register(ctx, &models.RegisterRequest{FullName: "", PhoneNumber: "123"})
			require.Error(t, err)

			testutil.Then(t, "the record count is unchanged", func(t *testing.T) {
				all, err := recordStore.FindAll(ctx)
				require.NoError(t, err)
				assert.Len(t, all, 1)
			})
		})
	})
}
