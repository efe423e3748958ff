package fitAuth

import (
	"context"
	"errors"
	"testing"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/audit"
	"github.com/fitlife/fitAuth/localauth"
	"github.com/fitlife/fitAuth/storage"
)

func validRegistration(email string) RegisterRequest {
	return RegisterRequest{
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Name:            "Jane Doe",
		Profile:         account.Profile{Age: 31, Goal: "lose"},
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t, newFailingRemote())
	h.cfg.Password.Policy.RequireDigit = true
	e, _ := h.tab(nil)

	mismatch := validRegistration("jane@fitlife.com")
	mismatch.ConfirmPassword = "secret2"

	weak := validRegistration("jane@fitlife.com")
	weak.Password, weak.ConfirmPassword = "abc", "abc"

	missing := validRegistration("jane@fitlife.com")
	missing.Name = "  "

	cases := []struct {
		name string
		req  RegisterRequest
		want error
		msg  string
	}{
		{"missing name", missing, ErrInvalidRegistration, "Please fill in all required fields"},
		{"mismatch", mismatch, ErrPasswordMismatch, "Passwords do not match"},
		{"policy", weak, ErrPasswordPolicy, "Password must be at least 6 characters and must contain a digit"},
		{"demo reserved", validRegistration("DEMO@fitlife.com"), ErrAlreadyRegistered, "An account with this email already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Register(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := e.State().Error; got != tc.msg {
				t.Fatalf("expected message %q, got %q", tc.msg, got)
			}
		})
	}

	var perr *PasswordPolicyError
	if _, err := e.Register(context.Background(), weak); !errors.As(err, &perr) || len(perr.Rules) != 2 {
		t.Fatalf("expected two unmet rules, got %v", err)
	}
	if got := e.MetricsSnapshot().Counters[MetricRegisterFailure]; got != 5 {
		t.Fatalf("expected 5 register failures, got %d", got)
	}
}

func TestRegisterFallsBackToLocalTable(t *testing.T) {
	ctx := context.Background()
	svc := newFailingRemote()
	h := newHarness(t, svc)
	e, _ := h.tab(nil)

	res, err := e.Register(ctx, validRegistration("Jane@FitLife.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Source != SourceLocal || res.User.Email != "jane@fitlife.com" || res.User.Role != account.RoleUser {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.User.Profile.Age != 31 || res.User.Profile.Height != account.DefaultProfile().Height {
		t.Fatalf("expected defaults filled around given fields, got %+v", res.User.Profile)
	}
	if svc.Calls("register") != 1 {
		t.Fatalf("expected one remote attempt, got %d", svc.Calls("register"))
	}
	if _, err := h.durable.Get(ctx, localauth.UsersKey); err != nil {
		t.Fatalf("expected offline account persisted, got %v", err)
	}

	acts, _ := e.Audit().RecentActivities(ctx, 2)
	if len(acts) != 2 || acts[0].Action != audit.ActionRegister || acts[1].Action != audit.ActionLogin {
		t.Fatalf("expected REGISTER after LOGIN, got %+v", acts)
	}

	if _, err := e.Register(ctx, validRegistration("jane@fitlife.com")); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestRegisterRemoteConflictIsFinal(t *testing.T) {
	ctx := context.Background()
	_, svc := newStubRemote(t)
	h := newHarness(t, svc)
	e, _ := h.tab(nil)

	_, err := e.Register(ctx, validRegistration("admin@fitlife.com"))
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if _, err := h.durable.Get(ctx, localauth.UsersKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("conflict must not fall back to the local table, got %v", err)
	}

	res, err := e.Register(ctx, validRegistration("new@fitlife.com"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Source != SourceRemote || res.Tokens.AccessToken == "" || !e.State().BackendConnected {
		t.Fatalf("expected remote registration, got %+v", res)
	}
}
