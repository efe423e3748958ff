package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fitlife/fitAuth/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config bounds the logs and configures dispatch.
type Config struct {
	MaxActivities int
	MaxLogins     int
	Dispatch      DispatchConfig
}

// DefaultConfig keeps 1000 activities and 500 logins.
func DefaultConfig() Config {
	return Config{
		MaxActivities: 1000,
		MaxLogins:     500,
		Dispatch: DispatchConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Deps are the collaborators of a Logger. Every field is optional.
type Deps struct {
	Repository Repository
	Probe      EnvironmentProbe
	SessionID  func(context.Context) (string, error)
	Now        func() time.Time
	NewID      func() string
	Sink       Sink
	Log        *zap.Logger
}

// Logger appends activity and login records and maintains their stats.
type Logger struct {
	cfg        Config
	repo       Repository
	probe      EnvironmentProbe
	sessionID  func(context.Context) (string, error)
	now        func() time.Time
	newID      func() string
	dispatcher *Dispatcher
	log        *zap.Logger

	envOnce sync.Once
	env     Environment

	mu sync.Mutex
}

// NewLogger builds a Logger. Missing dependencies default to an in-memory
// repository, an "Unknown" environment, an empty session id, time.Now, and
// random UUIDs.
func NewLogger(cfg Config, deps Deps) *Logger {
	def := DefaultConfig()
	if cfg.MaxActivities <= 0 {
		cfg.MaxActivities = def.MaxActivities
	}
	if cfg.MaxLogins <= 0 {
		cfg.MaxLogins = def.MaxLogins
	}
	if deps.Repository == nil {
		deps.Repository = NewStoreRepository(storage.NewMemory())
	}
	if deps.Probe == nil {
		deps.Probe = StaticProbe{Device: "Unknown", Browser: "Unknown", Location: "Unknown"}
	}
	if deps.SessionID == nil {
		deps.SessionID = func(context.Context) (string, error) { return "", nil }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	return &Logger{
		cfg:        cfg,
		repo:       deps.Repository,
		probe:      deps.Probe,
		sessionID:  deps.SessionID,
		now:        deps.Now,
		newID:      deps.NewID,
		dispatcher: NewDispatcher(cfg.Dispatch, deps.Sink),
		log:        deps.Log,
	}
}

func (l *Logger) environment(ctx context.Context) Environment {
	l.envOnce.Do(func() {
		l.env = l.probe.Probe(ctx)
	})
	return l.env
}

func (l *Logger) currentSessionID(ctx context.Context) string {
	sid, err := l.sessionID(ctx)
	if err != nil {
		l.log.Warn("audit session id unavailable", zap.Error(err))
		return ""
	}
	return sid
}

// loadActivities treats a malformed log as empty so one corrupt value does
// not block all further auditing.
func (l *Logger) loadActivities(ctx context.Context) ([]ActivityRecord, error) {
	recs, err := l.repo.LoadActivities(ctx)
	if errors.Is(err, storage.ErrMalformed) {
		l.log.Warn("discarding malformed activity log", zap.Error(err))
		return nil, nil
	}
	return recs, err
}

func (l *Logger) loadLogins(ctx context.Context) ([]LoginRecord, error) {
	recs, err := l.repo.LoadLogins(ctx)
	if errors.Is(err, storage.ErrMalformed) {
		l.log.Warn("discarding malformed login log", zap.Error(err))
		return nil, nil
	}
	return recs, err
}

func (l *Logger) loadStats(ctx context.Context) (Stats, error) {
	st, err := l.repo.LoadStats(ctx)
	if errors.Is(err, storage.ErrMalformed) {
		l.log.Warn("discarding malformed stats", zap.Error(err))
		return l.rebuildLocked(ctx)
	}
	return st, err
}

// LogActivity prepends a new activity record and updates the stats.
func (l *Logger) LogActivity(ctx context.Context, actor Actor, action, details string, metadata map[string]any) (ActivityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.logActivityLocked(ctx, actor, action, details, metadata)
}

func (l *Logger) logActivityLocked(ctx context.Context, actor Actor, action, details string, metadata map[string]any) (ActivityRecord, error) {
	env := l.environment(ctx)
	rec := ActivityRecord{
		ID:        l.newID(),
		UserID:    actor.ID,
		UserName:  actor.Name,
		UserEmail: actor.Email,
		Action:    action,
		Details:   details,
		Timestamp: l.now(),
		SessionID: l.currentSessionID(ctx),
		Device:    env.Device,
		Browser:   env.Browser,
		Location:  env.Location,
		Metadata:  metadata,
	}

	recs, err := l.loadActivities(ctx)
	if err != nil {
		return rec, err
	}
	recs = prepend(recs, rec, l.cfg.MaxActivities)
	if err := l.repo.SaveActivities(ctx, recs); err != nil {
		return rec, err
	}

	st, err := l.loadStats(ctx)
	if err != nil {
		return rec, err
	}
	st.apply(rec)
	if err := l.repo.SaveStats(ctx, st); err != nil {
		return rec, err
	}

	l.dispatcher.Emit(ctx, rec)
	return rec, nil
}

// LogLogin writes a login record and then a LOGIN or LOGIN_FAILED activity.
func (l *Logger) LogLogin(ctx context.Context, actor Actor, success bool, failureReason string) (LoginRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	env := l.environment(ctx)
	rec := LoginRecord{
		ID:        l.newID(),
		UserID:    actor.ID,
		UserName:  actor.Name,
		UserEmail: actor.Email,
		LoginTime: l.now(),
		Success:   success,
		SessionID: l.currentSessionID(ctx),
		Device:    env.Device,
		Browser:   env.Browser,
		Location:  env.Location,
	}
	if !success {
		rec.FailureReason = failureReason
	}

	logins, err := l.loadLogins(ctx)
	if err != nil {
		return rec, err
	}
	logins = prepend(logins, rec, l.cfg.MaxLogins)
	if err := l.repo.SaveLogins(ctx, logins); err != nil {
		return rec, err
	}

	action, details := ActionLogin, "User logged in successfully"
	var meta map[string]any
	if !success {
		action = ActionLoginFailed
		details = "Login failed"
		if failureReason != "" {
			details = "Login failed: " + failureReason
			meta = map[string]any{"reason": failureReason}
		}
	}
	_, err = l.logActivityLocked(ctx, actor, action, details, meta)
	return rec, err
}

// LogLogout closes the most recent open login span of actor, if any, and
// always appends a LOGOUT activity.
func (l *Logger) LogLogout(ctx context.Context, actor Actor) (ActivityRecord, error) {
	return l.EndSession(ctx, actor, "")
}

// EndSession is LogLogout with a cause recorded in the activity metadata,
// for sessions ended by closing or hiding the tab.
func (l *Logger) EndSession(ctx context.Context, actor Actor, cause string) (ActivityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	meta := map[string]any{}
	if cause != "" {
		meta["cause"] = cause
	}

	logins, err := l.loadLogins(ctx)
	if err != nil {
		return ActivityRecord{}, err
	}
	for i := range logins {
		if logins[i].UserID != actor.ID || !logins[i].Open() {
			continue
		}
		out := l.now()
		secs := int64(out.Sub(logins[i].LoginTime) / time.Second)
		logins[i].LogoutTime = &out
		logins[i].SessionDuration = &secs
		if err := l.repo.SaveLogins(ctx, logins); err != nil {
			return ActivityRecord{}, err
		}
		meta["sessionDuration"] = secs
		break
	}

	details := "User logged out"
	if cause != "" {
		details = "Session ended: " + cause
	}
	if len(meta) == 0 {
		meta = nil
	}
	return l.logActivityLocked(ctx, actor, ActionLogout, details, meta)
}

// LogProfileUpdate records which profile fields changed.
func (l *Logger) LogProfileUpdate(ctx context.Context, actor Actor, changed []string) (ActivityRecord, error) {
	details := "Updated profile"
	if len(changed) > 0 {
		details = "Updated profile fields: " + strings.Join(changed, ", ")
	}
	fields := append([]string(nil), changed...)
	return l.LogActivity(ctx, actor, ActionProfileUpdated, details, map[string]any{"changedFields": fields})
}

// LogFoodPreferencesUpdate records a change of dietary preferences.
func (l *Logger) LogFoodPreferencesUpdate(ctx context.Context, actor Actor, preferences map[string]any) (ActivityRecord, error) {
	return l.LogActivity(ctx, actor, ActionFoodPreferences, "Updated food preferences", preferences)
}

// LogWorkout records a completed workout.
func (l *Logger) LogWorkout(ctx context.Context, actor Actor, workoutType string, duration time.Duration) (ActivityRecord, error) {
	minutes := int(duration / time.Minute)
	details := fmt.Sprintf("Completed %s workout (%d min)", workoutType, minutes)
	return l.LogActivity(ctx, actor, ActionWorkoutLogged, details, map[string]any{
		"workoutType": workoutType,
		"duration":    minutes,
	})
}

// LogError records an application error observed by the user.
func (l *Logger) LogError(ctx context.Context, actor Actor, message, where string) (ActivityRecord, error) {
	details := "Error: " + message
	var meta map[string]any
	if where != "" {
		details += " (" + where + ")"
		meta = map[string]any{"context": where}
	}
	return l.LogActivity(ctx, actor, ActionError, details, meta)
}

// LogRegistration records a new account.
func (l *Logger) LogRegistration(ctx context.Context, actor Actor, source string) (ActivityRecord, error) {
	return l.LogActivity(ctx, actor, ActionRegister, "New account registered", map[string]any{"source": source})
}

// LogDemoUsage records a demo login and its running usage count.
func (l *Logger) LogDemoUsage(ctx context.Context, actor Actor, firstTime bool) (ActivityRecord, error) {
	details := "Demo account session continued"
	if firstTime {
		details = "Demo account session started"
	}
	return l.LogActivity(ctx, actor, ActionDemoUsage, details, map[string]any{"firstTime": firstTime})
}

// RecentActivities returns up to limit activities, newest first. A
// non-positive limit returns all retained records.
func (l *Logger) RecentActivities(ctx context.Context, limit int) ([]ActivityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.loadActivities(ctx)
	if err != nil {
		return nil, err
	}
	return head(recs, limit), nil
}

// RecentLogins returns up to limit login records, newest first.
func (l *Logger) RecentLogins(ctx context.Context, limit int) ([]LoginRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.loadLogins(ctx)
	if err != nil {
		return nil, err
	}
	return head(recs, limit), nil
}

// ActivitiesForUser returns up to limit activities of userID, newest first.
func (l *Logger) ActivitiesForUser(ctx context.Context, userID string, limit int) ([]ActivityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.loadActivities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ActivityRecord, 0)
	for _, r := range recs {
		if r.UserID != userID {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Stats returns a copy of the aggregate counters.
func (l *Logger) Stats(ctx context.Context) (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.loadStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return st.clone(), nil
}

// RebuildStats recomputes the counters from the retained activity log and
// persists the result.
func (l *Logger) RebuildStats(ctx context.Context) (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rebuildLocked(ctx)
}

func (l *Logger) rebuildLocked(ctx context.Context) (Stats, error) {
	recs, err := l.loadActivities(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{ActionCounts: make(map[string]int)}
	for i := len(recs) - 1; i >= 0; i-- {
		st.apply(recs[i])
	}
	if err := l.repo.SaveStats(ctx, st); err != nil {
		return Stats{}, err
	}
	return st.clone(), nil
}

// Clear removes every log and the stats. Development and test use only.
func (l *Logger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.repo.Clear(ctx)
}

// Dropped returns the number of records the dispatcher dropped.
func (l *Logger) Dropped() uint64 {
	return l.dispatcher.Dropped()
}

// Close flushes the dispatcher.
func (l *Logger) Close() {
	l.dispatcher.Close()
}

func prepend[T any](recs []T, rec T, limit int) []T {
	out := make([]T, 0, min(len(recs)+1, limit))
	out = append(out, rec)
	for _, r := range recs {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out
}

func head[T any](recs []T, limit int) []T {
	if limit <= 0 || limit >= len(recs) {
		return append([]T(nil), recs...)
	}
	return append([]T(nil), recs[:limit]...)
}
