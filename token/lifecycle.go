package token

import (
	"context"
	"errors"
	"time"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/storage"
	"github.com/golang-jwt/jwt/v5"
)

// Storage keys. They match the names the web client has always used so that
// existing browser profiles keep their sessions.
const (
	AccessTokenKey  = "auth_token"
	RefreshTokenKey = "refresh_token"
	ProfileKey      = "user_profile"
)

var (
	// ErrNoToken is returned when no access token is stored.
	ErrNoToken = errors.New("no access token")
	// ErrNoExpiry is returned when a token carries no exp claim.
	ErrNoExpiry = errors.New("token has no expiry claim")
)

// Pair is the stored token pair with the access token's decoded expiry.
type Pair struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Manager is the token lifecycle manager.
type Manager struct {
	store storage.Store
	now   func() time.Time
}

// NewManager returns a Manager persisting into store. A nil now uses time.Now.
func NewManager(store storage.Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, now: now}
}

// SetTokens stores both tokens, replacing any previous pair. An empty refresh
// token deletes the stored one.
func (m *Manager) SetTokens(ctx context.Context, access, refresh string) error {
	if err := m.store.Set(ctx, AccessTokenKey, []byte(access)); err != nil {
		return err
	}
	if refresh == "" {
		return m.store.Delete(ctx, RefreshTokenKey)
	}
	return m.store.Set(ctx, RefreshTokenKey, []byte(refresh))
}

// AccessToken returns the stored access token.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	return m.get(ctx, AccessTokenKey)
}

// RefreshToken returns the stored refresh token.
func (m *Manager) RefreshToken(ctx context.Context) (string, bool) {
	return m.get(ctx, RefreshTokenKey)
}

func (m *Manager) get(ctx context.Context, key string) (string, bool) {
	v, err := m.store.Get(ctx, key)
	if err != nil || len(v) == 0 {
		return "", false
	}
	return string(v), true
}

// ClearTokens removes both tokens and the cached profile. Safe to call repeatedly.
func (m *Manager) ClearTokens(ctx context.Context) error {
	return m.store.Delete(ctx, AccessTokenKey, RefreshTokenKey, ProfileKey)
}

// CacheProfile stores the profile snapshot that accompanies the tokens.
func (m *Manager) CacheProfile(ctx context.Context, u account.User) error {
	return storage.SetJSON(ctx, m.store, ProfileKey, u)
}

// CachedProfile returns the cached profile snapshot.
func (m *Manager) CachedProfile(ctx context.Context) (account.User, error) {
	var u account.User
	err := storage.GetJSON(ctx, m.store, ProfileKey, &u)
	return u, err
}

// IsAuthenticated reports whether a stored access token's expiry is strictly
// in the future.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	access, ok := m.AccessToken(ctx)
	if !ok {
		return false
	}
	exp, err := ExpiryOf(access)
	if err != nil {
		return false
	}
	return exp.After(m.now())
}

// Pair returns the stored pair. ErrNoToken when no access token is stored.
func (m *Manager) Pair(ctx context.Context) (Pair, error) {
	access, ok := m.AccessToken(ctx)
	if !ok {
		return Pair{}, ErrNoToken
	}
	exp, err := ExpiryOf(access)
	if err != nil {
		return Pair{}, err
	}
	refresh, _ := m.RefreshToken(ctx)
	return Pair{AccessToken: access, RefreshToken: refresh, Expiry: exp}, nil
}

// ExpiryOf decodes the exp claim of a JWT without verifying its signature.
func ExpiryOf(tokenStr string) (exp time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			exp, err = time.Time{}, jwt.ErrTokenMalformed
		}
	}()

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
