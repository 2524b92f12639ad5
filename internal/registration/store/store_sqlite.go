package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"leaddesk/internal/registration/models"
	id "leaddesk/pkg/domain"
)

// SQLiteRecordStore persists leads in a single-node SQLite file. created_at
// is stored as Unix nanoseconds and ties fall back to rowid.
type SQLiteRecordStore struct {
	db   *sql.DB
	mu   sync.Mutex
	last time.Time
}

func NewSQLiteRecordStore(ctx context.Context, db *sql.DB) (*SQLiteRecordStore, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS leads (
			id            TEXT PRIMARY KEY,
			full_name     TEXT NOT NULL,
			phone_number  TEXT NOT NULL,
			referral_name TEXT,
			created_at    INTEGER NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("create leads table: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads (created_at)`)
	if err != nil {
		return nil, fmt.Errorf("create leads index: %w", err)
	}
	return &SQLiteRecordStore{db: db}, nil
}

func (s *SQLiteRecordStore) Insert(ctx context.Context, rec models.NewRecord) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := time.Now().UTC()
	if createdAt.Before(s.last) {
		createdAt = s.last
	}

	recordID := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, full_name, phone_number, referral_name, created_at) VALUES (?, ?, ?, ?, ?)`,
		recordID, rec.FullName, rec.PhoneNumber, nullString(rec.ReferralName), createdAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	s.last = createdAt

	return &models.Record{
		ID:           id.RecordID(recordID),
		FullName:     rec.FullName,
		PhoneNumber:  rec.PhoneNumber,
		ReferralName: copyString(rec.ReferralName),
		CreatedAt:    createdAt,
	}, nil
}

func (s *SQLiteRecordStore) FindAll(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, phone_number, referral_name, created_at
		FROM leads
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var (
			recordID string
			rec      models.Record
			referral sql.NullString
			nanos    int64
		)
		if err := rows.Scan(&recordID, &rec.FullName, &rec.PhoneNumber, &referral, &nanos); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		rec.ID = id.RecordID(recordID)
		rec.CreatedAt = time.Unix(0, nanos).UTC()
		if referral.Valid {
			v := referral.String
			rec.ReferralName = &v
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return out, nil
}

func (s *SQLiteRecordStore) DeleteByID(ctx context.Context, recordID id.RecordID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, recordID.String())
	if err != nil {
		return false, fmt.Errorf("delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete lead rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteRecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
