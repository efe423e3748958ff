package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/storage"
	"go.uber.org/zap"
)

// DefaultEmail is the reserved demo identity.
const DefaultEmail = "demo@fitlife.com"

// Denial reasons shown to the user.
const (
	ReasonInUseElsewhere = "The demo account has already been used in another session. Please create your own account to continue."
	ReasonExpired        = "Your demo session has expired. Please create your own account to keep using FitLife."
)

// Config controls rationing of the demo identity.
type Config struct {
	Email         string
	Window        time.Duration
	WarnAfter     time.Duration
	WarnAfterUses int
}

// DefaultConfig returns the standard 30 minute demo window.
func DefaultConfig() Config {
	return Config{
		Email:         DefaultEmail,
		Window:        30 * time.Minute,
		WarnAfter:     5 * time.Minute,
		WarnAfterUses: 3,
	}
}

// Decision is the outcome of CanUse.
type Decision struct {
	Allowed     bool
	Reason      string
	IsFirstTime bool
}

// Status is a read-only view of the demo slot as seen by this session.
type Status struct {
	Record       *UsageRecord
	HeldHere     bool
	Remaining    string
	HasRemaining bool
	ShowWarning  bool
}

// Governor enforces single-session use of the demo identity.
type Governor struct {
	cfg       Config
	repo      Repository
	sessionID func(context.Context) (string, error)
	now       func() time.Time
	log       *zap.Logger
}

// NewGovernor returns a Governor. sessionID reports the current tab's session
// id. Zero config fields take DefaultConfig values; nil now and log fall back
// to time.Now and a no-op logger.
func NewGovernor(cfg Config, repo Repository, sessionID func(context.Context) (string, error), now func() time.Time, log *zap.Logger) *Governor {
	def := DefaultConfig()
	if cfg.Email == "" {
		cfg.Email = def.Email
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.WarnAfter <= 0 {
		cfg.WarnAfter = def.WarnAfter
	}
	if cfg.WarnAfterUses <= 0 {
		cfg.WarnAfterUses = def.WarnAfterUses
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Governor{cfg: cfg, repo: repo, sessionID: sessionID, now: now, log: log}
}

// Email returns the reserved demo address.
func (g *Governor) Email() string {
	return g.cfg.Email
}

// IsDemoEmail reports whether email names the demo identity.
func (g *Governor) IsDemoEmail(email string) bool {
	return account.SameEmail(email, g.cfg.Email)
}

// load returns the stored record, or ok=false when there is none. A malformed
// record is deleted and treated as absent.
func (g *Governor) load(ctx context.Context) (UsageRecord, bool, error) {
	rec, err := g.repo.Load(ctx)
	switch {
	case err == nil:
		return rec, true, nil
	case errors.Is(err, ErrNoRecord):
		return UsageRecord{}, false, nil
	case errors.Is(err, storage.ErrMalformed):
		g.log.Warn("discarding malformed demo usage record", zap.Error(err))
		if derr := g.repo.Delete(ctx); derr != nil {
			return UsageRecord{}, false, derr
		}
		return UsageRecord{}, false, nil
	default:
		return UsageRecord{}, false, err
	}
}

func (g *Governor) elapsed(rec UsageRecord) bool {
	return !g.now().Before(rec.FirstUsed.Add(g.cfg.Window))
}

// CanUse decides whether this session may log in as the demo identity.
func (g *Governor) CanUse(ctx context.Context) (Decision, error) {
	sid, err := g.sessionID(ctx)
	if err != nil {
		return Decision{}, err
	}
	rec, ok, err := g.load(ctx)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{Allowed: true, IsFirstTime: true}, nil
	}
	if rec.SessionID != sid {
		return Decision{Reason: ReasonInUseElsewhere}, nil
	}
	if !rec.IsExpired && g.elapsed(rec) {
		rec.IsExpired = true
		if err := g.repo.Save(ctx, rec); err != nil {
			return Decision{}, err
		}
	}
	if rec.IsExpired {
		return Decision{Reason: ReasonExpired}, nil
	}
	return Decision{Allowed: true}, nil
}

// RecordUsage registers a successful demo login for this session.
func (g *Governor) RecordUsage(ctx context.Context) error {
	sid, err := g.sessionID(ctx)
	if err != nil {
		return err
	}
	rec, ok, err := g.load(ctx)
	if err != nil {
		return err
	}

	now := g.now()
	if ok && rec.SessionID == sid {
		rec.UsageCount++
		rec.LastUsed = now
	} else {
		rec = UsageRecord{
			Email:      g.cfg.Email,
			FirstUsed:  now,
			SessionID:  sid,
			UsageCount: 1,
			LastUsed:   now,
		}
	}
	return g.repo.Save(ctx, rec)
}

// Expire marks the current record expired. It is a no-op without a record.
func (g *Governor) Expire(ctx context.Context) error {
	rec, ok, err := g.load(ctx)
	if err != nil || !ok || rec.IsExpired {
		return err
	}
	rec.IsExpired = true
	return g.repo.Save(ctx, rec)
}

// active returns the record when it is held by this session and not expired,
// expiring it first if its window has elapsed.
func (g *Governor) active(ctx context.Context) (UsageRecord, bool, error) {
	sid, err := g.sessionID(ctx)
	if err != nil {
		return UsageRecord{}, false, err
	}
	rec, ok, err := g.load(ctx)
	if err != nil || !ok || rec.SessionID != sid || rec.IsExpired {
		return rec, false, err
	}
	if g.elapsed(rec) {
		rec.IsExpired = true
		if err := g.repo.Save(ctx, rec); err != nil {
			return rec, false, err
		}
		return rec, false, nil
	}
	return rec, true, nil
}

// TimeUntilExpiration returns the remaining demo time as "Mm SSs". ok is false
// when this session holds no active record; an elapsed window expires the
// record.
func (g *Governor) TimeUntilExpiration(ctx context.Context) (string, bool, error) {
	rec, ok, err := g.active(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	return formatRemaining(rec.FirstUsed.Add(g.cfg.Window).Sub(g.now())), true, nil
}

// ShouldShowExpirationWarning reports whether the holder session should be
// warned that the demo will end.
func (g *Governor) ShouldShowExpirationWarning(ctx context.Context) (bool, error) {
	rec, ok, err := g.active(ctx)
	if err != nil || !ok {
		return false, err
	}
	return g.warn(rec), nil
}

func (g *Governor) warn(rec UsageRecord) bool {
	return rec.UsageCount >= g.cfg.WarnAfterUses || g.now().Sub(rec.FirstUsed) > g.cfg.WarnAfter
}

// Reset deletes the usage record. Development and test use only.
func (g *Governor) Reset(ctx context.Context) error {
	return g.repo.Delete(ctx)
}

// Status returns the record together with the remaining time and warning flag.
func (g *Governor) Status(ctx context.Context) (Status, error) {
	rec, held, err := g.active(ctx)
	if err != nil {
		return Status{}, err
	}
	var st Status
	if rec.SessionID != "" {
		r := rec
		st.Record = &r
	}
	if held {
		st.HeldHere = true
		st.Remaining = formatRemaining(rec.FirstUsed.Add(g.cfg.Window).Sub(g.now()))
		st.HasRemaining = true
		st.ShowWarning = g.warn(rec)
	}
	return st, nil
}

func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
}
