package demo

import (
	"context"
	"errors"
	"time"

	"github.com/fitlife/fitAuth/storage"
)

// UsageKey is the durable storage key of the demo usage record.
const UsageKey = "fitlife_demo_usage"

// ErrNoRecord is returned by a Repository when no usage record exists.
var ErrNoRecord = errors.New("demo: no usage record")

// UsageRecord is the rationing state of the demo identity.
type UsageRecord struct {
	Email      string    `json:"email"`
	FirstUsed  time.Time `json:"firstUsed"`
	SessionID  string    `json:"sessionId"`
	UsageCount int       `json:"usageCount"`
	LastUsed   time.Time `json:"lastUsed"`
	IsExpired  bool      `json:"isExpired"`
}

// Repository persists the single demo usage record.
type Repository interface {
	Load(ctx context.Context) (UsageRecord, error)
	Save(ctx context.Context, rec UsageRecord) error
	Delete(ctx context.Context) error
}

// StoreRepository keeps the record as JSON in a storage.Store.
type StoreRepository struct {
	store storage.Store
}

// NewStoreRepository returns a Repository over store.
func NewStoreRepository(store storage.Store) *StoreRepository {
	return &StoreRepository{store: store}
}

// Load returns ErrNoRecord when nothing is stored and an error wrapping
// storage.ErrMalformed when the stored value cannot be decoded.
func (r *StoreRepository) Load(ctx context.Context) (UsageRecord, error) {
	var rec UsageRecord
	err := storage.GetJSON(ctx, r.store, UsageKey, &rec)
	if errors.Is(err, storage.ErrNotFound) {
		return UsageRecord{}, ErrNoRecord
	}
	return rec, err
}

func (r *StoreRepository) Save(ctx context.Context, rec UsageRecord) error {
	return storage.SetJSON(ctx, r.store, UsageKey, rec)
}

func (r *StoreRepository) Delete(ctx context.Context) error {
	return r.store.Delete(ctx, UsageKey)
}
