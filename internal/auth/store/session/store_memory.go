package session

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"leaddesk/internal/auth/models"
	id "leaddesk/pkg/domain"
	"leaddesk/pkg/platform/sentinel"
)

// InMemorySessionStore keeps admin sessions in a TTL cache. Sessions are
// lost on restart.
type InMemorySessionStore struct {
	cache *gocache.Cache
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		cache: gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

// Save stores a copy of session for its remaining TTL.
func (s *InMemorySessionStore) Save(_ context.Context, session *models.Session) error {
	ttl := session.TTL()
	if ttl <= 0 {
		return fmt.Errorf("save session %s: non-positive ttl", session.ID)
	}
	stored := *session
	s.cache.Set(session.ID.String(), &stored, ttl)
	return nil
}

func (s *InMemorySessionStore) Get(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	v, ok := s.cache.Get(sessionID.String())
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	out := *v.(*models.Session)
	return &out, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.cache.Delete(sessionID.String())
	return nil
}

// Count reports the number of live sessions.
func (s *InMemorySessionStore) Count() int {
	return s.cache.ItemCount()
}
