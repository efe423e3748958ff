package fitAuth

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when neither the remote service nor the
	// local table accepts the email and password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDemoUnavailable is matched by every *DemoUnavailableError.
	ErrDemoUnavailable = errors.New("demo account unavailable")
	// ErrAlreadyRegistered is returned when registering an email that exists on
	// the remote service or in the local table, or the reserved demo email.
	ErrAlreadyRegistered = errors.New("account already exists")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	// ErrPasswordPolicy is matched by every *PasswordPolicyError.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrNetworkFailure wraps remote.ErrUnavailable on every failed remote
	// call. Each caller falls back to local state, so it never reaches the
	// public API.
	ErrNetworkFailure = errors.New("network failure")
	// ErrMalformedState marks persisted state that could not be decoded. The
	// engine discards such values and continues.
	ErrMalformedState = errors.New("malformed persisted state")
	// ErrOperationInProgress is returned when a credential action, profile
	// update or restore is already running on this engine.
	ErrOperationInProgress = errors.New("authentication operation in progress")
	ErrNotAuthenticated    = errors.New("not authenticated")
	// ErrInvalidRegistration is returned when a required registration field
	// is empty.
	ErrInvalidRegistration = errors.New("invalid registration request")
	ErrEngineNotReady      = errors.New("engine not initialized")
)

// User-visible messages placed in State.Error.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgPasswordMismatch   = "Passwords do not match"
	msgMissingFields      = "Please fill in all required fields"
	msgAlreadyRegistered  = "An account with this email already exists"
	msgNotAuthenticated   = "You must be logged in to update your profile"
	msgStorageFailure     = "Unable to access saved data. Please try again."
)

// DemoUnavailableError is returned when the demo identity is held by another
// session or its window has expired. Reason is a message fit for display.
type DemoUnavailableError struct {
	Reason string
}

func (e *DemoUnavailableError) Error() string {
	return "demo account unavailable: " + e.Reason
}

func (e *DemoUnavailableError) Unwrap() error {
	return ErrDemoUnavailable
}

// PasswordPolicyError lists every policy rule a registration password fails.
type PasswordPolicyError struct {
	Rules []string
}

func (e *PasswordPolicyError) Error() string {
	return "password policy violation: " + strings.Join(e.Rules, "; ")
}

func (e *PasswordPolicyError) Unwrap() error {
	return ErrPasswordPolicy
}

func (e *PasswordPolicyError) message() string {
	return "Password " + strings.Join(e.Rules, " and ")
}
