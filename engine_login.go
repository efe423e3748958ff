package fitAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/localauth"
	"github.com/fitlife/fitAuth/remote"
	"github.com/fitlife/fitAuth/session"
	"github.com/fitlife/fitAuth/storage"
	"github.com/fitlife/fitAuth/token"
	"go.uber.org/zap"
)

// Login authenticates creds. The demo identity is checked against the usage
// governor before any backend is contacted. The remote service is tried
// first; any remote failure falls back to the local credential table.
//
// Errors: *DemoUnavailableError, ErrInvalidCredentials, ErrOperationInProgress,
// or a wrapped storage error. State.Error carries the matching message.
func (e *Engine) Login(ctx context.Context, creds Credentials, opts LoginOptions) (LoginResult, error) {
	if err := e.begin(); err != nil {
		return LoginResult{}, err
	}
	defer e.end()

	return e.login(ctx, creds, opts)
}

func (e *Engine) login(ctx context.Context, creds Credentials, opts LoginOptions) (LoginResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)

	isDemo := e.demo.IsDemoEmail(creds.Email)
	firstUse := false
	if isDemo {
		dec, err := e.demo.CanUse(ctx)
		if err != nil {
			e.fail(msgStorageFailure)
			return LoginResult{}, fmt.Errorf("demo eligibility: %w", err)
		}
		if !dec.Allowed {
			e.metricInc(MetricDemoDenied)
			e.failAnonymous(dec.Reason)
			return LoginResult{}, &DemoUnavailableError{Reason: dec.Reason}
		}
		firstUse = dec.IsFirstTime
	}

	// -------- REMOTE --------
	var resp remote.AuthResponse
	err := e.callRemote("login", func(svc remote.Service) error {
		var err error
		resp, err = svc.Login(ctx, remote.LoginRequest{Email: creds.Email, Password: creds.Password})
		return err
	})
	if err == nil {
		pair, err := e.storeRemoteSession(ctx, resp)
		if err != nil {
			e.fail(msgStorageFailure)
			return LoginResult{}, err
		}
		res := LoginResult{User: resp.User, Tokens: pair, Source: SourceRemote, DemoFirstUse: firstUse}
		e.completeLogin(ctx, res, isDemo, creds, opts)
		return res, nil
	}
	e.setBackendConnected(false)

	// -------- LOCAL FALLBACK --------
	u, err := e.table.Authenticate(ctx, creds.Email, creds.Password)
	if errors.Is(err, localauth.ErrInvalidCredentials) {
		e.metricInc(MetricLoginFailure)
		_, aerr := e.audit.LogLogin(ctx, unknownActor(account.NormalizeEmail(creds.Email)), false, msgInvalidCredentials)
		e.auditErr("LOGIN_FAILED", aerr)
		e.failAnonymous(msgInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		e.fail(msgStorageFailure)
		return LoginResult{}, fmt.Errorf("local login: %w", err)
	}

	e.clearTokens(ctx)
	if err := e.sessions.Save(ctx, session.Snapshot{User: u}); err != nil {
		e.fail(msgStorageFailure)
		return LoginResult{}, fmt.Errorf("save session: %w", err)
	}
	res := LoginResult{User: u, Source: SourceLocal, DemoFirstUse: firstUse}
	e.completeLogin(ctx, res, isDemo, creds, opts)
	return res, nil
}

// storeRemoteSession persists the tokens and profile of a remote login or
// registration and drops the tab snapshot of any earlier local login.
func (e *Engine) storeRemoteSession(ctx context.Context, resp remote.AuthResponse) (token.Pair, error) {
	if err := e.sessions.Clear(ctx); err != nil {
		return token.Pair{}, fmt.Errorf("clear session: %w", err)
	}
	if err := e.tokens.SetTokens(ctx, resp.Token, resp.RefreshToken); err != nil {
		return token.Pair{}, fmt.Errorf("store tokens: %w", err)
	}
	if err := e.tokens.CacheProfile(ctx, resp.User); err != nil {
		return token.Pair{}, fmt.Errorf("cache profile: %w", err)
	}
	pair := token.Pair{AccessToken: resp.Token, RefreshToken: resp.RefreshToken}
	if exp, err := token.ExpiryOf(resp.Token); err == nil {
		pair.Expiry = exp
	} else {
		e.log.Debug("access token carries no readable expiry", zap.Error(err))
	}
	return pair, nil
}

// completeLogin publishes the authenticated state, then records demo usage,
// remembered credentials and audit entries. Failures past this point are
// logged, never returned.
func (e *Engine) completeLogin(ctx context.Context, res LoginResult, isDemo bool, creds Credentials, opts LoginOptions) {
	e.authenticate(res.User, res.Source)

	if isDemo {
		if err := e.demo.RecordUsage(ctx); err != nil {
			e.log.Warn("record demo usage failed", zap.Error(err))
		}
	}
	if opts.RememberMe {
		if err := e.rememberCredentials(ctx, creds); err != nil {
			e.log.Warn("remember credentials failed", zap.Error(err))
		}
	} else if err := e.forgetCredentials(ctx); err != nil {
		e.log.Warn("forget credentials failed", zap.Error(err))
	}

	actor := actorOf(res.User)
	_, err := e.audit.LogLogin(ctx, actor, true, "")
	e.auditErr("LOGIN", err)
	if isDemo {
		_, err = e.audit.LogDemoUsage(ctx, actor, res.DemoFirstUse)
		e.auditErr("DEMO_USAGE", err)
	}

	e.metricInc(MetricLoginSuccess)
	if res.Source == SourceRemote {
		e.metricInc(MetricLoginRemote)
	} else {
		e.metricInc(MetricLoginFallback)
	}
	e.log.Info("login succeeded",
		zap.String("user_id", res.User.ID),
		zap.String("source", string(res.Source)),
		zap.Bool("demo", isDemo),
	)
}

/*
====================================
REMEMBERED CREDENTIALS
====================================
*/

// RememberedCredentialsKey is the durable key of RememberMe credentials. The
// password is stored as entered.
const RememberedCredentialsKey = "fitlife_remembered_credentials"

func (e *Engine) rememberCredentials(ctx context.Context, creds Credentials) error {
	return storage.SetJSON(ctx, e.durable, RememberedCredentialsKey, creds)
}

func (e *Engine) forgetCredentials(ctx context.Context) error {
	return e.durable.Delete(ctx, RememberedCredentialsKey)
}

// rememberedCredentials returns ok=false when nothing usable is stored. An
// undecodable value is deleted.
func (e *Engine) rememberedCredentials(ctx context.Context) (Credentials, bool) {
	var creds Credentials
	err := storage.GetJSON(ctx, e.durable, RememberedCredentialsKey, &creds)
	switch {
	case err == nil && creds.Email != "" && creds.Password != "":
		return creds, true
	case errors.Is(err, storage.ErrNotFound):
		return Credentials{}, false
	case err == nil || errors.Is(err, storage.ErrMalformed):
		e.log.Warn("discarding malformed remembered credentials", zap.Error(err))
		_ = e.forgetCredentials(ctx)
		return Credentials{}, false
	default:
		e.log.Warn("read remembered credentials failed", zap.Error(err))
		return Credentials{}, false
	}
}
