package fitAuth

import (
	"context"

	"github.com/fitlife/fitAuth/audit"
	"go.uber.org/zap"
)

func actorOf(u User) audit.Actor {
	return audit.Actor{ID: u.ID, Name: u.Name, Email: u.Email}
}

func unknownActor(email string) audit.Actor {
	return audit.Actor{ID: audit.UnknownUserID, Name: "Unknown", Email: email}
}

// auditErr logs a failed audit write. Audit persistence never fails the
// operation being audited.
func (e *Engine) auditErr(action string, err error) {
	if err != nil {
		e.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// RecordActivity appends an activity record for the current user.
func (e *Engine) RecordActivity(ctx context.Context, action, details string, metadata map[string]any) (audit.ActivityRecord, error) {
	u, _, ok := e.current()
	if !ok {
		return audit.ActivityRecord{}, ErrNotAuthenticated
	}
	return e.audit.LogActivity(ctx, actorOf(u), action, details, metadata)
}

// LogWorkout records a completed workout for the current user.
func (e *Engine) LogWorkout(ctx context.Context, w WorkoutEntry) (audit.ActivityRecord, error) {
	u, _, ok := e.current()
	if !ok {
		return audit.ActivityRecord{}, ErrNotAuthenticated
	}
	return e.audit.LogWorkout(ctx, actorOf(u), w.Type, w.Duration)
}

func (e *Engine) LogFoodPreferencesUpdate(ctx context.Context, preferences map[string]any) (audit.ActivityRecord, error) {
	u, _, ok := e.current()
	if !ok {
		return audit.ActivityRecord{}, ErrNotAuthenticated
	}
	return e.audit.LogFoodPreferencesUpdate(ctx, actorOf(u), preferences)
}

// LogError records an application error. Errors raised while anonymous are
// attributed to the unknown user.
func (e *Engine) LogError(ctx context.Context, message, where string) (audit.ActivityRecord, error) {
	actor := unknownActor("")
	if u, _, ok := e.current(); ok {
		actor = actorOf(u)
	}
	return e.audit.LogError(ctx, actor, message, where)
}
