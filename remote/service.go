// Package remote is the client of the FitLife authentication service.
//
// Every failure, whether transport error, timeout, or non-2xx status, wraps
// [ErrUnavailable] so callers can fall back uniformly. A 409 from register
// additionally wraps [ErrConflict].
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitlife/fitAuth/account"
)

var (
	// ErrUnavailable marks every failed remote call.
	ErrUnavailable = errors.New("remote auth service unavailable")
	// ErrConflict marks a duplicate-email rejection from register.
	ErrConflict = errors.New("remote: email already registered")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Code)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnavailable || (target == ErrConflict && e.Code == 409)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	account.Profile
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User         account.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

// Service is the remote authentication contract.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
	Profile(ctx context.Context, accessToken string) (account.User, error)
	UpdateProfile(ctx context.Context, accessToken string, patch account.ProfilePatch) (account.User, error)
	Logout(ctx context.Context, accessToken string) error
}
