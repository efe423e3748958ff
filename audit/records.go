package audit

import "time"

// Activity actions written by the logger.
const (
	ActionLogin           = "LOGIN"
	ActionLoginFailed     = "LOGIN_FAILED"
	ActionLogout          = "LOGOUT"
	ActionRegister        = "REGISTER"
	ActionProfileUpdated  = "PROFILE_UPDATED"
	ActionFoodPreferences = "FOOD_PREFERENCES_UPDATED"
	ActionWorkoutLogged   = "WORKOUT_LOGGED"
	ActionError           = "ERROR"
	ActionDemoUsage       = "DEMO_USAGE"
)

// UnknownUserID identifies the actor of a failed login.
const UnknownUserID = "unknown"

// Actor is the user a record is attributed to.
type Actor struct {
	ID    string
	Name  string
	Email string
}

// ActivityRecord is one immutable entry of the activity log.
type ActivityRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	UserEmail string         `json:"userEmail"`
	Action    string         `json:"action"`
	Details   string         `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"sessionId"`
	Device    string         `json:"device,omitempty"`
	Browser   string         `json:"browser,omitempty"`
	Location  string         `json:"location,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// LoginRecord is one entry of the login log. LogoutTime and SessionDuration
// are set at most once, when the span is closed.
type LoginRecord struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	UserName        string     `json:"userName"`
	UserEmail       string     `json:"userEmail"`
	LoginTime       time.Time  `json:"loginTime"`
	LogoutTime      *time.Time `json:"logoutTime,omitempty"`
	SessionDuration *int64     `json:"sessionDuration,omitempty"`
	Success         bool       `json:"success"`
	FailureReason   string     `json:"failureReason,omitempty"`
	SessionID       string     `json:"sessionId"`
	Device          string     `json:"device,omitempty"`
	Browser         string     `json:"browser,omitempty"`
	Location        string     `json:"location,omitempty"`
}

// Open reports whether the login span has not been closed yet.
func (r LoginRecord) Open() bool {
	return r.LogoutTime == nil
}

// Stats are counters derived from the activity log.
type Stats struct {
	TotalLogins     int            `json:"totalLogins"`
	FailedLogins    int            `json:"failedLogins"`
	TotalLogouts    int            `json:"totalLogouts"`
	TotalActivities int            `json:"totalActivities"`
	ActionCounts    map[string]int `json:"actionCounts"`
	LastActivity    *time.Time     `json:"lastActivity,omitempty"`
}

func (s *Stats) apply(rec ActivityRecord) {
	if s.ActionCounts == nil {
		s.ActionCounts = make(map[string]int)
	}
	s.TotalActivities++
	s.ActionCounts[rec.Action]++
	switch rec.Action {
	case ActionLogin:
		s.TotalLogins++
	case ActionLoginFailed:
		s.FailedLogins++
	case ActionLogout:
		s.TotalLogouts++
	}
	if s.LastActivity == nil || rec.Timestamp.After(*s.LastActivity) {
		ts := rec.Timestamp
		s.LastActivity = &ts
	}
}

func (s Stats) clone() Stats {
	out := s
	out.ActionCounts = make(map[string]int, len(s.ActionCounts))
	for k, v := range s.ActionCounts {
		out.ActionCounts[k] = v
	}
	if s.LastActivity != nil {
		ts := *s.LastActivity
		out.LastActivity = &ts
	}
	return out
}
