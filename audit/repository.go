package audit

import (
	"context"
	"errors"

	"github.com/fitlife/fitAuth/storage"
)

// Durable storage keys.
const (
	ActivitiesKey = "fitlife_activity_logs"
	LoginsKey     = "fitlife_login_logs"
	StatsKey      = "fitlife_activity_stats"
)

// Repository persists the three audit collections as whole values. Load
// methods return empty values when nothing is stored.
type Repository interface {
	LoadActivities(ctx context.Context) ([]ActivityRecord, error)
	SaveActivities(ctx context.Context, records []ActivityRecord) error
	LoadLogins(ctx context.Context) ([]LoginRecord, error)
	SaveLogins(ctx context.Context, records []LoginRecord) error
	LoadStats(ctx context.Context) (Stats, error)
	SaveStats(ctx context.Context, stats Stats) error
	Clear(ctx context.Context) error
}

// StoreRepository keeps the collections as JSON in a storage.Store.
type StoreRepository struct {
	store storage.Store
}

// NewStoreRepository returns a Repository over store.
func NewStoreRepository(store storage.Store) *StoreRepository {
	return &StoreRepository{store: store}
}

func loadJSON(ctx context.Context, s storage.Store, key string, v any) error {
	err := storage.GetJSON(ctx, s, key, v)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (r *StoreRepository) LoadActivities(ctx context.Context) ([]ActivityRecord, error) {
	var out []ActivityRecord
	if err := loadJSON(ctx, r.store, ActivitiesKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StoreRepository) SaveActivities(ctx context.Context, records []ActivityRecord) error {
	return storage.SetJSON(ctx, r.store, ActivitiesKey, records)
}

func (r *StoreRepository) LoadLogins(ctx context.Context) ([]LoginRecord, error) {
	var out []LoginRecord
	if err := loadJSON(ctx, r.store, LoginsKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StoreRepository) SaveLogins(ctx context.Context, records []LoginRecord) error {
	return storage.SetJSON(ctx, r.store, LoginsKey, records)
}

func (r *StoreRepository) LoadStats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := loadJSON(ctx, r.store, StatsKey, &out); err != nil {
		return Stats{}, err
	}
	if out.ActionCounts == nil {
		out.ActionCounts = make(map[string]int)
	}
	return out, nil
}

func (r *StoreRepository) SaveStats(ctx context.Context, stats Stats) error {
	return storage.SetJSON(ctx, r.store, StatsKey, stats)
}

func (r *StoreRepository) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, ActivitiesKey, LoginsKey, StatsKey)
}
