package fitAuth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fitlife/fitAuth/audit"
	"github.com/fitlife/fitAuth/demo"
	"github.com/fitlife/fitAuth/session"
	"github.com/fitlife/fitAuth/storage"
	"github.com/fitlife/fitAuth/token"
	"github.com/golang-jwt/jwt/v5"
)

func TestLogoutPairsLoginAndExpiresDemo(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFailingRemote())
	e, tab := h.tab(nil)

	creds := Credentials{Email: demo.DefaultEmail, Password: "demo123"}
	if _, err := e.Login(ctx, creds, LoginOptions{RememberMe: true}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	h.clock.Advance(90 * time.Second)

	if err := e.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if st := e.State(); st.IsAuthenticated || st.User != nil {
		t.Fatalf("expected anonymous state, got %+v", st)
	}
	if _, err := tab.Get(ctx, session.UserKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected snapshot cleared, got %v", err)
	}
	if _, err := h.durable.Get(ctx, RememberedCredentialsKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected remembered credentials cleared, got %v", err)
	}

	logins, err := e.Audit().RecentLogins(ctx, 1)
	if err != nil || len(logins) != 1 {
		t.Fatalf("RecentLogins: %+v %v", logins, err)
	}
	if logins[0].LogoutTime == nil || logins[0].SessionDuration == nil || *logins[0].SessionDuration != 90 {
		t.Fatalf("expected closed span of 90s, got %+v", logins[0])
	}
	acts, _ := e.Audit().RecentActivities(ctx, 1)
	if len(acts) != 1 || acts[0].Action != audit.ActionLogout || acts[0].UserID != "demo-user" {
		t.Fatalf("expected LOGOUT activity, got %+v", acts)
	}

	status, err := e.DemoStatus(ctx)
	if err != nil || status.Record == nil || !status.Record.IsExpired || status.HeldHere {
		t.Fatalf("expected expired demo record, got %+v %v", status, err)
	}
	_, err = e.Login(ctx, creds, LoginOptions{})
	var denied *DemoUnavailableError
	if !errors.As(err, &denied) || denied.Reason != demo.ReasonExpired {
		t.Fatalf("expected expired denial after logout, got %v", err)
	}

	if err := e.ResetDemo(ctx); err != nil {
		t.Fatalf("ResetDemo: %v", err)
	}
	if _, err := e.Login(ctx, creds, LoginOptions{}); err != nil {
		t.Fatalf("login after reset failed: %v", err)
	}
}

func TestLogoutWhileAnonymousIsHarmless(t *testing.T) {
	h := newHarness(t, nil)
	e, _ := h.tab(nil)

	if err := e.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	acts, _ := e.Audit().RecentActivities(context.Background(), 0)
	if len(acts) != 0 {
		t.Fatalf("anonymous logout must not log activity, got %+v", acts)
	}
}

func TestHandleLifecycleClearsTabState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	e, tab := h.tab(nil)

	if _, err := e.Login(ctx, Credentials{Email: demo.DefaultEmail, Password: "demo123"}, LoginOptions{}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := e.HandleLifecycle(ctx, EventHidden); err != nil {
		t.Fatalf("HandleLifecycle(hidden): %v", err)
	}
	if !e.Session().IsAuthenticated {
		t.Fatal("hidden must not end the session unless EndOnHidden is set")
	}

	h.clock.Advance(10 * time.Second)
	if err := e.HandleLifecycle(ctx, EventBeforeUnload); err != nil {
		t.Fatalf("HandleLifecycle(beforeunload): %v", err)
	}
	if e.Session().IsAuthenticated {
		t.Fatal("expected anonymous after tab close")
	}
	if _, err := tab.Get(ctx, session.UserKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected snapshot cleared, got %v", err)
	}

	acts, _ := e.Audit().RecentActivities(ctx, 1)
	if len(acts) != 1 || acts[0].Action != audit.ActionLogout || acts[0].Metadata["cause"] != "beforeunload" {
		t.Fatalf("expected LOGOUT with cause, got %+v", acts)
	}
	logins, _ := e.Audit().RecentLogins(ctx, 1)
	if len(logins) != 1 || logins[0].Open() {
		t.Fatalf("expected closed login span, got %+v", logins)
	}

	// Tab close leaves the demo record for the window to expire.
	status, err := e.DemoStatus(ctx)
	if err != nil || status.Record == nil || status.Record.IsExpired {
		t.Fatalf("expected live demo record, got %+v %v", status, err)
	}
	if got := e.MetricsSnapshot().Counters[MetricLifecycleEnd]; got != 1 {
		t.Fatalf("expected lifecycle counter 1, got %d", got)
	}

	h.cfg.Session.RestoreRemembered = false
	reloaded, _ := h.tab(tab)
	sess, err := reloaded.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if sess.IsAuthenticated || sess.User != nil {
		t.Fatalf("expected anonymous restore after tab close, got %+v", sess)
	}
}

func TestHandleHiddenWhenConfigured(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.cfg.Session.EndOnHidden = true
	e, _ := h.tab(nil)

	if _, err := e.Login(ctx, Credentials{Email: "admin@fitlife.com", Password: "admin123"}, LoginOptions{}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := e.HandleLifecycle(ctx, EventHidden); err != nil {
		t.Fatalf("HandleLifecycle: %v", err)
	}
	if e.Session().IsAuthenticated {
		t.Fatal("expected hidden to end the session")
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin-user",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestRestoreClearsExpiredToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFailingRemote())
	e, _ := h.tab(nil)

	tokens := token.NewManager(h.durable, h.clock.Now)
	if err := tokens.SetTokens(ctx, signedToken(t, h.clock.Now().Add(-time.Minute)), "r"); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}

	sess, err := e.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if sess.IsAuthenticated || sess.IsLoading {
		t.Fatalf("expected anonymous session, got %+v", sess)
	}
	if _, ok := tokens.AccessToken(ctx); ok {
		t.Fatal("expected expired token to be cleared")
	}
}

func TestRestoreClearsTokenWhenProfileFails(t *testing.T) {
	ctx := context.Background()
	svc := newFailingRemote()
	h := newHarness(t, svc)
	e, _ := h.tab(nil)

	tokens := token.NewManager(h.durable, h.clock.Now)
	if err := tokens.SetTokens(ctx, signedToken(t, h.clock.Now().Add(time.Hour)), "r"); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}

	sess, _ := e.Restore(ctx)
	if sess.IsAuthenticated {
		t.Fatal("expected anonymous after profile failure")
	}
	if svc.Calls("profile") != 1 {
		t.Fatalf("expected one profile call, got %d", svc.Calls("profile"))
	}
	if _, ok := tokens.AccessToken(ctx); ok {
		t.Fatal("expected token cleared after profile failure")
	}
	if e.State().BackendConnected {
		t.Fatal("expected BackendConnected false")
	}
}

func TestRestoreFromRemoteToken(t *testing.T) {
	ctx := context.Background()
	_, svc := newStubRemote(t)
	h := newHarness(t, svc)
	first, _ := h.tab(nil)

	if _, err := first.Login(ctx, Credentials{Email: "admin@fitlife.com", Password: "admin123"}, LoginOptions{}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	second, _ := h.tab(nil)
	sess, err := second.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !sess.IsAuthenticated || sess.User == nil || sess.User.ID != "admin-user" {
		t.Fatalf("expected restored admin, got %+v", sess)
	}
	if second.Source() != SourceRemote || !second.State().BackendConnected {
		t.Fatal("expected remote-backed restore")
	}
}

func TestRestoreFromTabSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	first, tab := h.tab(nil)

	if _, err := first.Login(ctx, Credentials{Email: "admin@fitlife.com", Password: "admin123"}, LoginOptions{}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	reloaded, _ := h.tab(tab)
	sess, _ := reloaded.Restore(ctx)
	if !sess.IsAuthenticated || sess.User.ID != "admin-user" || reloaded.Source() != SourceLocal {
		t.Fatalf("expected local restore, got %+v", sess)
	}
	if got := reloaded.MetricsSnapshot().Counters[MetricSessionRestored]; got != 1 {
		t.Fatalf("expected restored counter 1, got %d", got)
	}
}

func TestRestoreDiscardsMalformedSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tab := storage.NewMemory()
	if err := tab.Set(ctx, session.UserKey, []byte("{not json")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	e, _ := h.tab(tab)

	sess, err := e.Restore(ctx)
	if err != nil || sess.IsAuthenticated {
		t.Fatalf("expected anonymous, got %+v %v", sess, err)
	}
	if _, err := tab.Get(ctx, session.UserKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected malformed snapshot deleted, got %v", err)
	}
	if e.State().Error != "" {
		t.Fatalf("restore must not surface an error, got %q", e.State().Error)
	}
}

func TestRestoreRememberedCredentials(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFailingRemote())
	first, _ := h.tab(nil)

	if _, err := first.Login(ctx, Credentials{Email: "admin@fitlife.com", Password: "admin123"}, LoginOptions{RememberMe: true}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// A new tab has no snapshot; the remembered credentials log in silently.
	second, _ := h.tab(nil)
	sess, _ := second.Restore(ctx)
	if !sess.IsAuthenticated || sess.User.ID != "admin-user" {
		t.Fatalf("expected silent login, got %+v", sess)
	}

	h.cfg.Session.RestoreRemembered = false
	third, _ := h.tab(nil)
	if sess, _ := third.Restore(ctx); sess.IsAuthenticated {
		t.Fatal("remembered restore must honor RestoreRemembered")
	}
}

func TestRestoreForgetsRejectedCredentials(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFailingRemote())
	if err := storage.SetJSON(ctx, h.durable, RememberedCredentialsKey, Credentials{Email: "admin@fitlife.com", Password: "stale"}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	e, _ := h.tab(nil)

	sess, _ := e.Restore(ctx)
	if sess.IsAuthenticated {
		t.Fatal("expected anonymous")
	}
	if msg := e.State().Error; msg != "" {
		t.Fatalf("silent restore must leave Error empty, got %q", msg)
	}
	if _, err := h.durable.Get(ctx, RememberedCredentialsKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected rejected credentials deleted, got %v", err)
	}
}

func TestRestoreReturnsLastLoginAfterOutage(t *testing.T) {
	ctx := context.Background()
	srv, svc := newStubRemote(t)
	h := newHarness(t, svc)
	e, tab := h.tab(nil)

	if _, err := e.Login(ctx, Credentials{Email: "admin@fitlife.com", Password: "admin123"}, LoginOptions{}); err != nil {
		t.Fatalf("remote Login failed: %v", err)
	}
	srv.SetAvailable(false)
	res, err := e.Login(ctx, Credentials{Email: demo.DefaultEmail, Password: "demo123"}, LoginOptions{})
	if err != nil || res.Source != SourceLocal {
		t.Fatalf("expected local login, got %+v %v", res, err)
	}

	tokens := token.NewManager(h.durable, h.clock.Now)
	if _, ok := tokens.AccessToken(ctx); ok {
		t.Fatal("local login must clear tokens of the earlier remote login")
	}

	srv.SetAvailable(true)
	sess, _ := h.tab(tab).Restore(ctx)
	if !sess.IsAuthenticated || sess.User == nil || sess.User.ID != "demo-user" {
		t.Fatalf("expected demo-user restored, got %+v", sess)
	}
}

func TestRemoteLoginDropsLocalSnapshot(t *testing.T) {
	ctx := context.Background()
	srv, svc := newStubRemote(t)
	h := newHarness(t, svc)
	e, tab := h.tab(nil)

	srv.SetAvailable(false)
	if _, err := e.Login(ctx, Credentials{Email: "admin@fitlife.com", Password: "admin123"}, LoginOptions{}); err != nil {
		t.Fatalf("local Login failed: %v", err)
	}
	if _, err := tab.Get(ctx, session.UserKey); err != nil {
		t.Fatalf("expected snapshot after local login, got %v", err)
	}

	srv.SetAvailable(true)
	if _, err := e.Login(ctx, Credentials{Email: "admin@fitlife.com", Password: "admin123"}, LoginOptions{}); err != nil {
		t.Fatalf("remote Login failed: %v", err)
	}
	if _, err := tab.Get(ctx, session.UserKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected snapshot cleared by remote login, got %v", err)
	}
}
