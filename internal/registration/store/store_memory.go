package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"leaddesk/internal/registration/models"
	id "leaddesk/pkg/domain"
)

type memoryEntry struct {
	record models.Record
	seq    uint64
}

// InMemoryRecordStore keeps leads in process. Data is lost on restart.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[id.RecordID]memoryEntry
	seq     uint64
	last    time.Time
	now     func() time.Time
}

// MemoryOption customises an InMemoryRecordStore.
type MemoryOption func(*InMemoryRecordStore)

// WithClock replaces time.Now, mostly for tests that need equal timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryRecordStore) {
		s.now = now
	}
}

func NewInMemoryRecordStore(opts ...MemoryOption) *InMemoryRecordStore {
	s := &InMemoryRecordStore{
		records: make(map[id.RecordID]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryRecordStore) Insert(_ context.Context, rec models.NewRecord) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UTC()
	if createdAt.Before(s.last) {
		createdAt = s.last
	}
	s.last = createdAt
	s.seq++

	stored := models.Record{
		ID:           id.RecordID(uuid.NewString()),
		FullName:     rec.FullName,
		PhoneNumber:  rec.PhoneNumber,
		ReferralName: copyString(rec.ReferralName),
		CreatedAt:    createdAt,
	}
	s.records[stored.ID] = memoryEntry{record: stored, seq: s.seq}

	out := stored
	out.ReferralName = copyString(stored.ReferralName)
	return &out, nil
}

func (s *InMemoryRecordStore) FindAll(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	entries := make([]memoryEntry, 0, len(s.records))
	for _, e := range s.records {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].record.CreatedAt.Equal(entries[j].record.CreatedAt) {
			return entries[i].record.CreatedAt.After(entries[j].record.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	out := make([]*models.Record, 0, len(entries))
	for _, e := range entries {
		rec := e.record
		rec.ReferralName = copyString(rec.ReferralName)
		out = append(out, &rec)
	}
	return out, nil
}

func (s *InMemoryRecordStore) DeleteByID(_ context.Context, recordID id.RecordID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[recordID]; !ok {
		return false, nil
	}
	delete(s.records, recordID)
	return true, nil
}

func (s *InMemoryRecordStore) Ping(context.Context) error {
	return nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
