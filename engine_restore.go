package fitAuth

import (
	"context"
	"errors"

	"github.com/fitlife/fitAuth/remote"
	"github.com/fitlife/fitAuth/session"
	"github.com/fitlife/fitAuth/storage"
	"go.uber.org/zap"
)

// Restore recovers the session at startup, trying in order: a live access
// token confirmed by the remote profile endpoint, the tab snapshot of a local
// login, and remembered credentials. State that fails any step is cleared and
// the next step is tried. The only error is ErrOperationInProgress.
func (e *Engine) Restore(ctx context.Context) (Session, error) {
	if err := e.begin(); err != nil {
		return Session{}, err
	}
	defer e.end()

	if e.restoreFromToken(ctx) || e.restoreFromSnapshot(ctx) || e.restoreRemembered(ctx) {
		e.metricInc(MetricSessionRestored)
	} else {
		e.reset()
	}

	st := e.State().Session
	st.IsLoading = false
	return st, nil
}

func (e *Engine) restoreFromToken(ctx context.Context) bool {
	access, present := e.tokens.AccessToken(ctx)
	if !present {
		return false
	}
	if !e.tokens.IsAuthenticated(ctx) {
		e.log.Debug("clearing expired access token")
		e.clearTokens(ctx)
		return false
	}

	var u User
	err := e.callRemote("profile", func(svc remote.Service) error {
		var err error
		u, err = svc.Profile(ctx, access)
		return err
	})
	if err != nil {
		e.metricInc(MetricRestoreFailure)
		e.setBackendConnected(false)
		e.clearTokens(ctx)
		return false
	}
	if err := e.tokens.CacheProfile(ctx, u); err != nil {
		e.log.Warn("cache profile failed", zap.Error(err))
	}
	e.authenticate(u, SourceRemote)
	return true
}

func (e *Engine) restoreFromSnapshot(ctx context.Context) bool {
	snap, err := e.sessions.Load(ctx)
	switch {
	case err == nil:
		e.authenticate(snap.User, SourceLocal)
		return true
	case errors.Is(err, session.ErrNoSession):
	case errors.Is(err, storage.ErrMalformed):
		e.metricInc(MetricRestoreFailure)
		e.log.Warn("discarded malformed session snapshot", zap.Error(errors.Join(ErrMalformedState, err)))
	default:
		e.metricInc(MetricRestoreFailure)
		e.log.Warn("load session snapshot failed", zap.Error(err))
	}
	return false
}

// restoreRemembered runs a silent login. Its failures leave State.Error
// empty; rejected credentials are forgotten.
func (e *Engine) restoreRemembered(ctx context.Context) bool {
	if !e.config.Session.RestoreRemembered {
		return false
	}
	creds, ok := e.rememberedCredentials(ctx)
	if !ok {
		return false
	}

	_, err := e.login(ctx, creds, LoginOptions{RememberMe: true})
	if err == nil {
		return true
	}

	e.metricInc(MetricRestoreFailure)
	e.fail("")
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrDemoUnavailable) {
		if ferr := e.forgetCredentials(ctx); ferr != nil {
			e.log.Warn("forget credentials failed", zap.Error(ferr))
		}
	}
	e.log.Info("remembered login rejected", zap.Error(err))
	return false
}

func (e *Engine) clearTokens(ctx context.Context) {
	if err := e.tokens.ClearTokens(ctx); err != nil {
		e.log.Warn("clear tokens failed", zap.Error(err))
	}
}
