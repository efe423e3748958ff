package fitAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fitlife/fitAuth/localauth"
	"github.com/fitlife/fitAuth/remote"
	"github.com/fitlife/fitAuth/session"
	"go.uber.org/zap"
)

// Register creates an account and logs it in. The request is validated
// locally first. The remote service is tried first; a 409 from it is final,
// any other remote failure registers in the local table instead.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (LoginResult, error) {
	if err := e.begin(); err != nil {
		return LoginResult{}, err
	}
	defer e.end()

	res, err := e.register(ctx, req)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		return LoginResult{}, err
	}
	e.metricInc(MetricRegisterSuccess)
	return res, nil
}

func (e *Engine) validateRegistration(req *RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if req.Email == "" || req.Name == "" || req.Password == "" {
		e.fail(msgMissingFields)
		return ErrInvalidRegistration
	}
	if req.Password != req.ConfirmPassword {
		e.fail(msgPasswordMismatch)
		return ErrPasswordMismatch
	}
	if rules := e.config.Password.Policy.Check(req.Password); len(rules) > 0 {
		perr := &PasswordPolicyError{Rules: rules}
		e.fail(perr.message())
		return perr
	}
	if e.demo.IsDemoEmail(req.Email) {
		e.fail(msgAlreadyRegistered)
		return ErrAlreadyRegistered
	}
	return nil
}

func (e *Engine) register(ctx context.Context, req RegisterRequest) (LoginResult, error) {
	if err := e.validateRegistration(&req); err != nil {
		return LoginResult{}, err
	}

	// -------- REMOTE --------
	var resp remote.AuthResponse
	err := e.callRemote("register", func(svc remote.Service) error {
		var err error
		resp, err = svc.Register(ctx, remote.RegisterRequest{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Profile:  req.Profile,
		})
		return err
	})
	switch {
	case err == nil:
		pair, err := e.storeRemoteSession(ctx, resp)
		if err != nil {
			e.fail(msgStorageFailure)
			return LoginResult{}, err
		}
		res := LoginResult{User: resp.User, Tokens: pair, Source: SourceRemote}
		e.completeRegistration(ctx, res)
		return res, nil
	case errors.Is(err, remote.ErrConflict):
		e.setBackendConnected(true)
		e.fail(msgAlreadyRegistered)
		return LoginResult{}, ErrAlreadyRegistered
	}
	e.setBackendConnected(false)

	// -------- LOCAL FALLBACK --------
	u, err := e.table.Register(ctx, localauth.Registration{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Profile:  req.Profile,
	})
	if errors.Is(err, localauth.ErrDuplicate) {
		e.fail(msgAlreadyRegistered)
		return LoginResult{}, ErrAlreadyRegistered
	}
	if err != nil {
		e.fail(msgStorageFailure)
		return LoginResult{}, fmt.Errorf("local register: %w", err)
	}
	e.clearTokens(ctx)
	if err := e.sessions.Save(ctx, session.Snapshot{User: u}); err != nil {
		e.fail(msgStorageFailure)
		return LoginResult{}, fmt.Errorf("save session: %w", err)
	}

	res := LoginResult{User: u, Source: SourceLocal}
	e.completeRegistration(ctx, res)
	return res, nil
}

func (e *Engine) completeRegistration(ctx context.Context, res LoginResult) {
	e.authenticate(res.User, res.Source)

	actor := actorOf(res.User)
	_, err := e.audit.LogLogin(ctx, actor, true, "")
	e.auditErr("LOGIN", err)
	_, err = e.audit.LogRegistration(ctx, actor, string(res.Source))
	e.auditErr("REGISTER", err)

	e.log.Info("registration succeeded",
		zap.String("user_id", res.User.ID),
		zap.String("source", string(res.Source)),
	)
}
