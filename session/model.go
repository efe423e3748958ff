package session

import (
	"time"

	"github.com/fitlife/fitAuth/account"
)

// Snapshot is the user state kept for the lifetime of a tab.
type Snapshot struct {
	User    account.User
	SavedAt time.Time
}
