package fitAuth

import (
	"time"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/token"
)

// User is the authenticated identity.
type User = account.User

// AuthSource names the store that authenticated the current user.
type AuthSource string

const (
	SourceNone   AuthSource = ""
	SourceRemote AuthSource = "remote"
	SourceLocal  AuthSource = "local"
)

// Session is the caller-facing view of who is logged in.
type Session struct {
	User            *User
	IsAuthenticated bool
	IsLoading       bool
}

// State is Session plus the last user-visible error and whether the remote
// service answered the most recent call.
type State struct {
	Session
	Error            string
	BackendConnected bool
}

// Credentials are the email and password of a login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginOptions struct {
	// RememberMe persists the credentials for silent restore.
	RememberMe bool
}

// LoginResult describes a successful login or registration. Tokens is zero
// for local-table logins.
type LoginResult struct {
	User         User
	Tokens       token.Pair
	Source       AuthSource
	DemoFirstUse bool
}

// RegisterRequest is the input of Register. Profile fields left zero take
// account.DefaultProfile values.
type RegisterRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	Name            string
	Profile         account.Profile
}

// LifecycleEvent is a host page lifecycle signal.
type LifecycleEvent int

const (
	// EventBeforeUnload is delivered when the tab is closing.
	EventBeforeUnload LifecycleEvent = iota
	// EventHidden is delivered when the tab is hidden. It ends the session
	// only when Config.Session.EndOnHidden is set.
	EventHidden
)

func (ev LifecycleEvent) String() string {
	switch ev {
	case EventBeforeUnload:
		return "beforeunload"
	case EventHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// WorkoutEntry is a completed workout recorded through LogWorkout.
type WorkoutEntry struct {
	Type     string
	Duration time.Duration
}
