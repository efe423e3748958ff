package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/fitlife/fitAuth/storage"
)

// Keys in the tab store.
const (
	UserKey      = "fitlife_session_user"
	SessionIDKey = "fitlife_session_id"
)

const tabIDSize = 16

// ErrNoSession is returned by Load when no snapshot is stored.
var ErrNoSession = errors.New("no session snapshot")

// Store keeps tab-scoped session state in a storage.Store that lives exactly
// as long as the tab.
type Store struct {
	tab storage.Store
	now func() time.Time

	mu    sync.Mutex
	tabID string
}

// NewStore returns a Store over tab. A nil now uses time.Now.
func NewStore(tab storage.Store, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{tab: tab, now: now}
}

// TabID returns the session id of this tab, minting and persisting one on
// first use. The same value is returned for the lifetime of the tab store.
func (s *Store) TabID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tabID != "" {
		return s.tabID, nil
	}

	if raw, err := s.tab.Get(ctx, SessionIDKey); err == nil && len(raw) > 0 {
		s.tabID = string(raw)
		return s.tabID, nil
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	id, err := newTabID()
	if err != nil {
		return "", err
	}
	if err := s.tab.Set(ctx, SessionIDKey, []byte(id)); err != nil {
		return "", err
	}
	s.tabID = id
	return id, nil
}

// Save overwrites the stored snapshot.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = s.now()
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	return s.tab.Set(ctx, UserKey, data)
}

// Load returns the stored snapshot. A malformed value is deleted and reported
// with an error wrapping storage.ErrMalformed.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	data, err := s.tab.Get(ctx, UserKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{}, ErrNoSession
	}
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := Decode(data)
	if err != nil {
		_ = s.tab.Delete(ctx, UserKey)
		return Snapshot{}, err
	}
	return snap, nil
}

// Clear removes the snapshot. The tab id survives.
func (s *Store) Clear(ctx context.Context) error {
	return s.tab.Delete(ctx, UserKey)
}

func newTabID() (string, error) {
	var raw [tabIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
