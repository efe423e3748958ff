package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/storage"
)

const (
	snapshotFormatVersionCurrent = 1
)

type snapshotEnvelope struct {
	Version int           `json:"v"`
	User    *account.User `json:"user"`
	SavedAt time.Time     `json:"savedAt"`
}

// Encode serializes a snapshot in the current format version.
func Encode(s Snapshot) ([]byte, error) {
	u := s.User
	return json.Marshal(snapshotEnvelope{
		Version: snapshotFormatVersionCurrent,
		User:    &u,
		SavedAt: s.SavedAt,
	})
}

// Decode parses a snapshot. Unknown versions, undecodable input, and
// snapshots without a user id return an error wrapping storage.ErrMalformed.
func Decode(data []byte) (Snapshot, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, fmt.Errorf("%w: session snapshot: %v", storage.ErrMalformed, err)
	}
	if env.Version != snapshotFormatVersionCurrent {
		return Snapshot{}, fmt.Errorf("%w: session snapshot version %d", storage.ErrMalformed, env.Version)
	}
	if env.User == nil || env.User.ID == "" {
		return Snapshot{}, fmt.Errorf("%w: session snapshot has no user", storage.ErrMalformed)
	}
	return Snapshot{User: *env.User, SavedAt: env.SavedAt}, nil
}
