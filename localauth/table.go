// Package localauth is the fallback credential table used when the remote
// auth service is unreachable. It holds the seeded demo and admin accounts
// and any account registered while offline.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/password"
	"github.com/fitlife/fitAuth/storage"
	"github.com/google/uuid"
)

// UsersKey is the durable storage key of offline-registered accounts.
const UsersKey = "fitlife_mock_users"

var (
	// ErrInvalidCredentials is returned when no entry matches email and password.
	ErrInvalidCredentials = errors.New("localauth: invalid email or password")
	// ErrDuplicate is returned when registering an email that already exists.
	ErrDuplicate = errors.New("localauth: email already registered")
)

// Seed is a built-in account.
type Seed struct {
	ID       string
	Email    string
	Password string
	Name     string
	Role     account.Role
}

// DefaultSeeds returns the demo and admin accounts.
func DefaultSeeds() []Seed {
	return []Seed{
		{ID: "demo-user", Email: "demo@fitlife.com", Password: "demo123", Name: "Demo User", Role: account.RoleUser},
		{ID: "admin-user", Email: "admin@fitlife.com", Password: "admin123", Name: "Admin User", Role: account.RoleAdmin},
	}
}

// Registration is the input of Register.
type Registration struct {
	Email    string
	Password string
	Name     string
	Profile  account.Profile
}

type entry struct {
	User         account.User `json:"user"`
	PasswordHash string       `json:"passwordHash"`
}

// Table is the local credential table.
type Table struct {
	store  storage.Store
	hasher password.Hasher
	now    func() time.Time

	mu    sync.Mutex
	seeds []entry
}

// NewTable hashes seeds with hasher and returns a table persisting
// registrations into store. A nil now uses time.Now.
func NewTable(store storage.Store, hasher password.Hasher, seeds []Seed, now func() time.Time) (*Table, error) {
	if now == nil {
		now = time.Now
	}
	t := &Table{store: store, hasher: hasher, now: now}

	created := now()
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Password)
		if err != nil {
			return nil, fmt.Errorf("localauth: hash seed %s: %w", s.Email, err)
		}
		t.seeds = append(t.seeds, entry{
			User: account.User{
				ID:        s.ID,
				Email:     account.NormalizeEmail(s.Email),
				Name:      s.Name,
				Role:      s.Role,
				Profile:   account.DefaultProfile(),
				CreatedAt: created,
				UpdatedAt: created,
			},
			PasswordHash: hash,
		})
	}
	return t, nil
}

func (t *Table) registered(ctx context.Context) ([]entry, error) {
	var out []entry
	err := storage.GetJSON(ctx, t.store, UsersKey, &out)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return out, err
}

func (t *Table) find(ctx context.Context, email string) (entry, bool, error) {
	for _, e := range t.seeds {
		if account.SameEmail(e.User.Email, email) {
			return e, true, nil
		}
	}
	reg, err := t.registered(ctx)
	if err != nil {
		return entry{}, false, err
	}
	for _, e := range reg {
		if account.SameEmail(e.User.Email, email) {
			return e, true, nil
		}
	}
	return entry{}, false, nil
}

// Authenticate returns the user whose email and password both match.
func (t *Table) Authenticate(ctx context.Context, email, pw string) (account.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok, err := t.find(ctx, email)
	if err != nil {
		return account.User{}, err
	}
	if !ok {
		return account.User{}, ErrInvalidCredentials
	}
	match, err := t.hasher.Verify(pw, e.PasswordHash)
	if err != nil {
		return account.User{}, err
	}
	if !match {
		return account.User{}, ErrInvalidCredentials
	}
	return e.User, nil
}

// Exists reports whether email names a seeded or registered account.
func (t *Table) Exists(ctx context.Context, email string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok, err := t.find(ctx, email)
	return ok, err
}

// Register adds a user with role "user" and persists it.
func (t *Table) Register(ctx context.Context, r Registration) (account.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists, err := t.find(ctx, r.Email)
	if err != nil {
		return account.User{}, err
	}
	if exists {
		return account.User{}, ErrDuplicate
	}

	hash, err := t.hasher.Hash(r.Password)
	if err != nil {
		return account.User{}, err
	}

	now := t.now()
	u := account.User{
		ID:        uuid.NewString(),
		Email:     account.NormalizeEmail(r.Email),
		Name:      r.Name,
		Role:      account.RoleUser,
		Profile:   r.Profile.WithDefaults(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	reg, err := t.registered(ctx)
	if err != nil {
		return account.User{}, err
	}
	reg = append(reg, entry{User: u, PasswordHash: hash})
	if err := storage.SetJSON(ctx, t.store, UsersKey, reg); err != nil {
		return account.User{}, err
	}
	return u, nil
}

// Update replaces the stored profile of an existing account. Unknown ids are
// ignored.
func (t *Table) Update(ctx context.Context, u account.User) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.seeds {
		if t.seeds[i].User.ID == u.ID {
			t.seeds[i].User = u
			return nil
		}
	}

	reg, err := t.registered(ctx)
	if err != nil {
		return err
	}
	for i := range reg {
		if reg[i].User.ID == u.ID {
			reg[i].User = u
			return storage.SetJSON(ctx, t.store, UsersKey, reg)
		}
	}
	return nil
}
