package fitAuth

import (
	"context"
	"errors"

	"github.com/fitlife/fitAuth/remote"
	"go.uber.org/zap"
)

// Logout ends the session. The remote logout is best effort. A demo user's
// usage record is expired so the demo cannot be resumed. Tokens, the tab
// snapshot and remembered credentials are cleared even when nobody is
// logged in.
func (e *Engine) Logout(ctx context.Context) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	u, _, authenticated := e.current()

	if access, ok := e.tokens.AccessToken(ctx); ok {
		_ = e.callRemote("logout", func(svc remote.Service) error {
			return svc.Logout(ctx, access)
		})
	}

	if authenticated {
		_, err := e.audit.LogLogout(ctx, actorOf(u))
		e.auditErr("LOGOUT", err)

		if e.demo.IsDemoEmail(u.Email) {
			if err := e.demo.Expire(ctx); err != nil {
				e.log.Warn("expire demo usage failed", zap.Error(err))
			}
		}
	}

	err := errors.Join(
		e.tokens.ClearTokens(ctx),
		e.sessions.Clear(ctx),
		e.forgetCredentials(ctx),
	)
	e.reset()
	e.metricInc(MetricLogout)
	if err != nil {
		e.log.Warn("logout cleanup incomplete", zap.Error(err))
	}
	return err
}

// HandleLifecycle ends the session when the tab closes, or when it is hidden
// and Config.Session.EndOnHidden is set. The LOGOUT entry, the tab snapshot
// and the tokens are handled before it returns. The demo usage record is left
// untouched so a reopened tab is judged by its window.
func (e *Engine) HandleLifecycle(ctx context.Context, ev LifecycleEvent) error {
	switch ev {
	case EventBeforeUnload:
	case EventHidden:
		if !e.config.Session.EndOnHidden {
			return nil
		}
	default:
		return nil
	}

	u, _, ok := e.current()
	if !ok {
		return nil
	}

	_, aerr := e.audit.EndSession(ctx, actorOf(u), ev.String())
	e.auditErr("LOGOUT", aerr)

	err := errors.Join(
		e.sessions.Clear(ctx),
		e.tokens.ClearTokens(ctx),
	)
	e.reset()
	e.metricInc(MetricLifecycleEnd)
	return err
}
