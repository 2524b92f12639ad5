package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"pgregory.net/rapid"

	"leaddesk/internal/registration/models"
)

func TestInMemoryRecordStore(t *testing.T) {
	suite.Run(t, &RecordStoreSuite{
		NewStore:    func() recordStore { return NewInMemoryRecordStore() },
		MalformedID: "not-a-known-id",
	})
}

func TestInMemoryRecordStore_EqualTimestampsKeepInsertionOrder(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewInMemoryRecordStore(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	a, err := store.Insert(ctx, models.NewRecord{FullName: "a", PhoneNumber: "12345"})
	require.NoError(t, err)
	b, err := store.Insert(ctx, models.NewRecord{FullName: "b", PhoneNumber: "12345"})
	require.NoError(t, err)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Equal(t, a.ID, all[1].ID)
}

func TestInMemoryRecordStore_ClockGoingBackwards(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 5, 1, 10, 0, 1, 0, time.UTC),
		time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	i := 0
	store := NewInMemoryRecordStore(WithClock(func() time.Time {
		t := times[i]
		i++
		return t
	}))
	ctx := context.Background()

	first, err := store.Insert(ctx, models.NewRecord{FullName: "a", PhoneNumber: "12345"})
	require.NoError(t, err)
	second, err := store.Insert(ctx, models.NewRecord{FullName: "b", PhoneNumber: "12345"})
	require.NoError(t, err)

	assert.False(t, second.CreatedAt.Before(first.CreatedAt), "createdAt never decreases")
}

func TestInMemoryRecordStore_ReturnedRecordsAreCopies(t *testing.T) {
	store := NewInMemoryRecordStore()
	ctx := context.Background()
	ref := "Bob"

	rec, err := store.Insert(ctx, models.NewRecord{FullName: "a", PhoneNumber: "12345", ReferralName: &ref})
	require.NoError(t, err)
	*rec.ReferralName = "mutated"
	ref = "also mutated"

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Bob", *all[0].ReferralName)
}

// FindAll is ordered by non-increasing createdAt for any interleaving of
// inserts and deletes, including runs of identical timestamps.
func TestInMemoryRecordStore_OrderingProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		offsets := rapid.SliceOfN(rapid.IntRange(-3, 3), 1, 40).Draw(rt, "clock offsets")
		i := 0
		store := NewInMemoryRecordStore(WithClock(func() time.Time {
			t := base.Add(time.Duration(offsets[i%len(offsets)]) * time.Second)
			i++
			return t
		}))
		ctx := context.Background()

		var inserted []*models.Record
		for range offsets {
			rec, err := store.Insert(ctx, models.NewRecord{FullName: "p", PhoneNumber: "12345"})
			if err != nil {
				rt.Fatalf("insert: %v", err)
			}
			inserted = append(inserted, rec)
			if rapid.Bool().Draw(rt, "delete one") && len(inserted) > 0 {
				victim := rapid.IntRange(0, len(inserted)-1).Draw(rt, "victim")
				if _, err := store.DeleteByID(ctx, inserted[victim].ID); err != nil {
					rt.Fatalf("delete: %v", err)
				}
			}
		}

		all, err := store.FindAll(ctx)
		if err != nil {
			rt.Fatalf("find all: %v", err)
		}
		for j := 1; j < len(all); j++ {
			if all[j].CreatedAt.After(all[j-1].CreatedAt) {
				rt.Fatalf("record %d (%v) is newer than record %d (%v)", j, all[j].CreatedAt, j-1, all[j-1].CreatedAt)
			}
		}
	})
}
