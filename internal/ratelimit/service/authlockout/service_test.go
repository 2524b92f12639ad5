package authlockout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"leaddesk/internal/ratelimit/config"
	"leaddesk/internal/ratelimit/models"
	"leaddesk/internal/ratelimit/service/authlockout/mocks"
	store "leaddesk/internal/ratelimit/store/authlockout"
	dErrors "leaddesk/pkg/domain-errors"
	audit "leaddesk/pkg/platform/audit"
	auditmemory "leaddesk/pkg/platform/audit/store/memory"
	"leaddesk/pkg/requestcontext"
)

const clientIP = "192.0.2.10"

type LockoutServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	metrics *mocks.MockMetrics
	audit   *auditmemory.InMemoryStore
	service *Service
	start   time.Time
}

func TestLockoutServiceSuite(t *testing.T) {
	suite.Run(t, new(LockoutServiceSuite))
}

func (s *LockoutServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.metrics = mocks.NewMockMetrics(s.ctrl)
	s.audit = auditmemory.NewInMemoryStore()
	s.start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	svc, err := New(store.New(),
		WithMetrics(s.metrics),
		WithAuditPublisher(s.audit),
		WithConfig(config.AuthLockoutConfig{AttemptsPerWindow: 3, WindowDuration: 10 * time.Minute}),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *LockoutServiceSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.start.Add(offset))
}

func (s *LockoutServiceSuite) TestUnknownClientIsAllowed() {
	status, err := s.service.Check(s.at(0), clientIP)
	s.Require().NoError(err)
	s.True(status.Allowed)
	s.Equal(3, status.Remaining)
}

func (s *LockoutServiceSuite) TestLocksAfterLimit() {
	for i := range 2 {
		status, err := s.service.RecordFailure(s.at(time.Duration(i)*time.Second), clientIP)
		s.Require().NoError(err)
		s.True(status.Allowed)
		s.False(status.JustLocked)
	}

	s.metrics.EXPECT().IncrementLockouts().Times(1)
	status, err := s.service.RecordFailure(s.at(2*time.Second), clientIP)
	s.Require().NoError(err)
	s.False(status.Allowed)
	s.True(status.JustLocked)
	s.Equal(10*time.Minute, status.RetryAfter)

	check, err := s.service.Check(s.at(5*time.Minute), clientIP)
	s.Require().NoError(err)
	s.False(check.Allowed)
	s.Equal(5*time.Minute+2*time.Second, check.RetryAfter)

	events, err := s.audit.ListByAction(context.Background(), audit.EventAuthLockoutTriggered)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(clientIP, events[0].Subject)
}

func (s *LockoutServiceSuite) TestLockExpires() {
	s.metrics.EXPECT().IncrementLockouts().Times(1)
	for i := range 3 {
		_, err := s.service.RecordFailure(s.at(time.Duration(i)*time.Second), clientIP)
		s.Require().NoError(err)
	}

	check, err := s.service.Check(s.at(11*time.Minute), clientIP)
	s.Require().NoError(err)
	s.True(check.Allowed)
	s.Equal(3, check.Remaining)
}

func (s *LockoutServiceSuite) TestFailuresOutsideWindowStartFresh() {
	_, err := s.service.RecordFailure(s.at(0), clientIP)
	s.Require().NoError(err)
	_, err = s.service.RecordFailure(s.at(time.Minute), clientIP)
	s.Require().NoError(err)

	status, err := s.service.RecordFailure(s.at(10*time.Minute), clientIP)
	s.Require().NoError(err)
	s.True(status.Allowed)
	s.Equal(1, status.FailureCount)
}

func (s *LockoutServiceSuite) TestClearResetsCount() {
	_, err := s.service.RecordFailure(s.at(0), clientIP)
	s.Require().NoError(err)
	_, err = s.service.RecordFailure(s.at(time.Second), clientIP)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Clear(s.at(2*time.Second), clientIP))

	status, err := s.service.RecordFailure(s.at(3*time.Second), clientIP)
	s.Require().NoError(err)
	s.Equal(1, status.FailureCount)
	s.True(status.Allowed)
}

func (s *LockoutServiceSuite) TestClientsAreCountedSeparately() {
	for i := range 2 {
		_, err := s.service.RecordFailure(s.at(time.Duration(i)*time.Second), clientIP)
		s.Require().NoError(err)
	}
	status, err := s.service.Check(s.at(3*time.Second), "192.0.2.11")
	s.Require().NoError(err)
	s.True(status.Allowed)
	s.Equal(3, status.Remaining)
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestStoreFailuresAreInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc, err := New(st)
	require.NoError(t, err)

	key := models.NewAuthLockoutKey(clientIP)
	st.EXPECT().Get(gomock.Any(), key).Return(nil, errors.New("redis down")).Times(2)

	_, err = svc.Check(context.Background(), clientIP)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = svc.RecordFailure(context.Background(), clientIP)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	st.EXPECT().Clear(gomock.Any(), key).Return(errors.New("redis down"))
	err = svc.Clear(context.Background(), clientIP)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
