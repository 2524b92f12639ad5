package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"leaddesk/internal/registration/models"
	id "leaddesk/pkg/domain"
)

// PostgresRecordStore persists leads in a Postgres table. created_at comes
// from clock_timestamp() and seq breaks ties between equal timestamps.
type PostgresRecordStore struct {
	db    *sql.DB
	table string
}

// NewPostgresRecordStore creates the table if it does not exist.
func NewPostgresRecordStore(ctx context.Context, db *sql.DB, table string) (*PostgresRecordStore, error) {
	if table == "" {
		table = "leads"
	}
	s := &PostgresRecordStore{db: db, table: pq.QuoteIdentifier(table)}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id            UUID PRIMARY KEY,
			seq           BIGSERIAL NOT NULL,
			full_name     TEXT NOT NULL,
			phone_number  TEXT NOT NULL,
			referral_name TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
		)`, s.table))
	if err != nil {
		return nil, fmt.Errorf("create leads table: %w", err)
	}
	return s, nil
}

func (s *PostgresRecordStore) Insert(ctx context.Context, rec models.NewRecord) (*models.Record, error) {
	recordID := uuid.New()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, full_name, phone_number, referral_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`, s.table)

	var createdAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query,
		recordID, rec.FullName, rec.PhoneNumber, nullString(rec.ReferralName),
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}

	return &models.Record{
		ID:           id.RecordID(recordID.String()),
		FullName:     rec.FullName,
		PhoneNumber:  rec.PhoneNumber,
		ReferralName: copyString(rec.ReferralName),
		CreatedAt:    createdAt.Time.UTC(),
	}, nil
}

func (s *PostgresRecordStore) FindAll(ctx context.Context) ([]*models.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, full_name, phone_number, referral_name, created_at
		FROM %s
		ORDER BY created_at DESC, seq DESC`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var (
			recordID  uuid.UUID
			rec       models.Record
			referral  sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&recordID, &rec.FullName, &rec.PhoneNumber, &referral, &createdAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		rec.ID = id.RecordID(recordID.String())
		rec.CreatedAt = createdAt.Time.UTC()
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

// DeleteByID reports false for ids that are not UUIDs; such rows cannot exist.
func (s *PostgresRecordStore) DeleteByID(ctx context.Context, recordID id.RecordID) (bool, error) {
	parsed, err := uuid.Parse(recordID.String())
	if err != nil {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), parsed)
	if err != nil {
		return false, fmt.Errorf("delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete lead rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresRecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
