package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"leaddesk/internal/registration/models"
)

func TestMongoLead_NilReferralIsExplicitNull(t *testing.T) {
	doc := newMongoLead(models.NewRecord{FullName: "Jane Doe", PhoneNumber: "18005550199"}, time.Now().UTC())

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	val, err := bson.Raw(raw).LookupErr("referralName")
	require.NoError(t, err, "referralName key must be present")
	assert.Equal(t, bsontype.Null, val.Type)
}

func TestMongoLead_ReferralIsStored(t *testing.T) {
	referral := "Bob"
	doc := newMongoLead(models.NewRecord{FullName: "Jane Doe", PhoneNumber: "18005550199", ReferralName: &referral}, time.Now().UTC())

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	val, err := bson.Raw(raw).LookupErr("referralName")
	require.NoError(t, err)
	assert.Equal(t, "Bob", val.StringValue())
}

func TestMongoRecordStore_ClockGoingBackwards(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 5, 1, 10, 0, 1, 0, time.UTC),
		time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	i := 0
	store := newMongoRecordStore(nil, WithMongoClock(func() time.Time {
		t := times[i]
		i++
		return t
	}))

	first := store.nextCreatedAt()
	store.last = first
	second := store.nextCreatedAt()

	assert.Equal(t, times[0], first)
	assert.False(t, second.Before(first), "createdAt never decreases")
}
