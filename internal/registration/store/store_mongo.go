package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"leaddesk/internal/registration/models"
	id "leaddesk/pkg/domain"
)

// mongoLead mirrors the documents of the existing "users" collection,
// including the updatedAt field its previous writer maintained. A lead
// without a referral stores an explicit null, never a missing key.
type mongoLead struct {
	ID           primitive.ObjectID `bson:"_id"`
	FullName     string             `bson:"fullName"`
	PhoneNumber  string             `bson:"phoneNumber"`
	ReferralName *string            `bson:"referralName"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func newMongoLead(rec models.NewRecord, createdAt time.Time) mongoLead {
	return mongoLead{
		ID:           primitive.NewObjectID(),
		FullName:     rec.FullName,
		PhoneNumber:  rec.PhoneNumber,
		ReferralName: copyString(rec.ReferralName),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func (d mongoLead) toRecord() *models.Record {
	return &models.Record{
		ID:           id.RecordID(d.ID.Hex()),
		FullName:     d.FullName,
		PhoneNumber:  d.PhoneNumber,
		ReferralName: d.ReferralName,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// MongoRecordStore persists leads as documents. BSON dates have millisecond
// precision, so createdAt is truncated before insert and ObjectIDs, which
// grow with insertion order, break ties.
type MongoRecordStore struct {
	coll *mongo.Collection
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// MongoOption customises a MongoRecordStore.
type MongoOption func(*MongoRecordStore)

// WithMongoClock replaces time.Now.
func WithMongoClock(now func() time.Time) MongoOption {
	return func(s *MongoRecordStore) {
		s.now = now
	}
}

func NewMongoRecordStore(ctx context.Context, coll *mongo.Collection, opts ...MongoOption) (*MongoRecordStore, error) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create leads index: %w", err)
	}
	return newMongoRecordStore(coll, opts...), nil
}

func newMongoRecordStore(coll *mongo.Collection, opts ...MongoOption) *MongoRecordStore {
	s := &MongoRecordStore{coll: coll, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextCreatedAt never returns a time before the previous insert's, even
// when the wall clock steps back. Callers hold s.mu.
func (s *MongoRecordStore) nextCreatedAt() time.Time {
	createdAt := s.now().UTC().Truncate(time.Millisecond)
	if createdAt.Before(s.last) {
		createdAt = s.last
	}
	return createdAt
}

func (s *MongoRecordStore) Insert(ctx context.Context, rec models.NewRecord) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := newMongoLead(rec, s.nextCreatedAt())
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	s.last = doc.CreatedAt
	return doc.toRecord(), nil
}

func (s *MongoRecordStore) FindAll(ctx context.Context) ([]*models.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoLead
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode leads: %w", err)
	}
	out := make([]*models.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRecord())
	}
	return out, nil
}

// DeleteByID reports false for ids that are not ObjectID hex strings.
func (s *MongoRecordStore) DeleteByID(ctx context.Context, recordID id.RecordID) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(recordID.String())
	if err != nil {
		return false, nil
	}
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return false, fmt.Errorf("delete lead: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoRecordStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}
