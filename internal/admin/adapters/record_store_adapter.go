package adapters

import (
	"context"
	"fmt"

	"leaddesk/internal/registration/models"
	id "leaddesk/pkg/domain"
	"leaddesk/pkg/platform/sentinel"
)

// RegistrationRecordStore is implemented by every registration store.
type RegistrationRecordStore interface {
	FindAll(ctx context.Context) ([]*models.Record, error)
	DeleteByID(ctx context.Context, recordID id.RecordID) (bool, error)
}

// RecordStoreAdapter exposes a registration store to the admin service,
// reporting absent records as sentinel.ErrNotFound.
type RecordStoreAdapter struct {
	store RegistrationRecordStore
}

func NewRecordStoreAdapter(store RegistrationRecordStore) *RecordStoreAdapter {
	return &RecordStoreAdapter{store: store}
}

func (a *RecordStoreAdapter) ListAll(ctx context.Context) ([]*models.Record, error) {
	return a.store.FindAll(ctx)
}

func (a *RecordStoreAdapter) Delete(ctx context.Context, recordID id.RecordID) error {
	deleted, err := a.store.DeleteByID(ctx, recordID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("lead %s: %w", recordID, sentinel.ErrNotFound)
	}
	return nil
}
