package session

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"leaddesk/internal/auth/models"
	id "leaddesk/pkg/domain"
	"leaddesk/pkg/platform/sentinel"
)

type sessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

// SessionStoreSuite runs the same behaviour checks against every backend.
type SessionStoreSuite struct {
	suite.Suite
	NewStore func() sessionStore

	store sessionStore
	ctx   context.Context
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = s.NewStore()
	s.ctx = context.Background()
}

func newSession(ttl time.Duration) *models.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Session{
		ID:                id.NewSessionID(),
		Username:          "admin",
		ClientIP:          "192.0.2.1",
		UserAgent:         "curl/8.4.0",
		DeviceDisplayName: "curl on Unknown OS",
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}
}

func (s *SessionStoreSuite) TestSaveAndGet() {
	sess := newSession(time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, sess))

	got, err := s.store.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal(sess.Username, got.Username)
	s.Equal(sess.DeviceDisplayName, got.DeviceDisplayName)
	s.True(sess.ExpiresAt.Equal(got.ExpiresAt))
}

func (s *SessionStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, id.NewSessionID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *SessionStoreSuite) TestDelete() {
	sess := newSession(time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, sess))
	s.Require().NoError(s.store.Delete(s.ctx, sess.ID))

	_, err := s.store.Get(s.ctx, sess.ID)
	s.True(errors.Is(err, sentinel.ErrNotFound))

	s.NoError(s.store.Delete(s.ctx, sess.ID), "deleting twice is not an error")
}

func (s *SessionStoreSuite) TestSessionsAreIndependent() {
	a := newSession(time.Hour)
	b := newSession(time.Hour)
	s.Require().NoError(s.store.Save(s.ctx, a))
	s.Require().NoError(s.store.Save(s.ctx, b))
	s.Require().NoError(s.store.Delete(s.ctx, a.ID))

	_, err := s.store.Get(s.ctx, b.ID)
	s.NoError(err)
}

func (s *SessionStoreSuite) TestRejectsNonPositiveTTL() {
	sess := newSession(0)
	s.Error(s.store.Save(s.ctx, sess))
}

func (s *SessionStoreSuite) TestSessionExpires() {
	sess := newSession(time.Second)
	s.Require().NoError(s.store.Save(s.ctx, sess))

	s.Eventually(func() bool {
		_, err := s.store.Get(s.ctx, sess.ID)
		return errors.Is(err, sentinel.ErrNotFound)
	}, 3*time.Second, 50*time.Millisecond)
}
