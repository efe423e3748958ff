package fitAuth

import (
	"context"
	"fmt"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/remote"
	"github.com/fitlife/fitAuth/session"
)

// UpdateProfile applies patch to the current user. While backend-connected
// the remote service is updated; when it fails, or when offline, the patch is
// merged into the local copy and BackendConnected becomes false.
func (e *Engine) UpdateProfile(ctx context.Context, patch account.ProfilePatch) (User, error) {
	if err := e.begin(); err != nil {
		return User{}, err
	}
	defer e.end()

	u, source, ok := e.current()
	if !ok {
		e.fail(msgNotAuthenticated)
		return User{}, ErrNotAuthenticated
	}
	if patch.IsEmpty() {
		return u, nil
	}

	updated, err := e.updateRemote(ctx, patch)
	if err != nil {
		e.setBackendConnected(false)
		updated = patch.Apply(u, e.now())
		if err := e.persistLocal(ctx, updated, source); err != nil {
			e.fail(msgStorageFailure)
			return User{}, err
		}
	}

	e.mu.Lock()
	e.state.User = &updated
	e.state.Error = ""
	e.mu.Unlock()

	_, aerr := e.audit.LogProfileUpdate(ctx, actorOf(updated), patch.ChangedKeys())
	e.auditErr("PROFILE_UPDATED", aerr)
	e.metricInc(MetricProfileUpdate)
	return updated, nil
}

func (e *Engine) updateRemote(ctx context.Context, patch account.ProfilePatch) (User, error) {
	if !e.backendConnected() {
		return User{}, fmt.Errorf("%w: %w", ErrNetworkFailure, remote.ErrUnavailable)
	}
	access, ok := e.tokens.AccessToken(ctx)
	if !ok {
		return User{}, fmt.Errorf("%w: no access token", ErrNetworkFailure)
	}

	var updated User
	err := e.callRemote("update_profile", func(svc remote.Service) error {
		var err error
		updated, err = svc.UpdateProfile(ctx, access, patch)
		return err
	})
	if err != nil {
		return User{}, err
	}
	if err := e.tokens.CacheProfile(ctx, updated); err != nil {
		return User{}, fmt.Errorf("cache profile: %w", err)
	}
	return updated, nil
}

// persistLocal writes a locally merged profile to the local table and to
// whichever snapshot the session restores from.
func (e *Engine) persistLocal(ctx context.Context, u User, source AuthSource) error {
	if err := e.table.Update(ctx, u); err != nil {
		return fmt.Errorf("update local table: %w", err)
	}
	if source == SourceRemote {
		if err := e.tokens.CacheProfile(ctx, u); err != nil {
			return fmt.Errorf("cache profile: %w", err)
		}
		return nil
	}
	if err := e.sessions.Save(ctx, session.Snapshot{User: u}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
