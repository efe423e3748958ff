package fitAuth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fitlife/fitAuth/audit"
	"github.com/fitlife/fitAuth/demo"
	"github.com/fitlife/fitAuth/localauth"
	"github.com/fitlife/fitAuth/remote"
	"github.com/fitlife/fitAuth/session"
	"github.com/fitlife/fitAuth/storage"
	"github.com/fitlife/fitAuth/token"
	"go.uber.org/zap"
)

// Engine is the authentication orchestrator of one tab. Credential actions,
// profile updates and Restore are serialized: a second call while one is
// running fails with ErrOperationInProgress.
type Engine struct {
	config   Config
	remote   remote.Service
	tokens   *token.Manager
	sessions *session.Store
	table    *localauth.Table
	demo     *demo.Governor
	audit    *audit.Logger
	metrics  *Metrics
	durable  storage.Store
	log      *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	state  State
	source AuthSource
	busy   bool
}

// Close flushes the audit dispatcher. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many activity records the async dispatcher
// dropped because its buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Audit exposes the activity and login logger for read access.
func (e *Engine) Audit() *audit.Logger {
	return e.audit
}

// Session returns a copy of the current session.
func (e *Engine) Session() Session {
	return e.State().Session
}

// State returns a copy of the full engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Source reports which store authenticated the current user.
func (e *Engine) Source() AuthSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

/*
====================================
STATE TRANSITIONS
====================================
*/

// begin marks an operation in flight and raises IsLoading.
func (e *Engine) begin() error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy {
		return ErrOperationInProgress
	}
	e.busy = true
	e.state.IsLoading = true
	return nil
}

func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.busy = false
	e.state.IsLoading = false
}

func (e *Engine) authenticate(u User, source AuthSource) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.User = &u
	e.state.IsAuthenticated = true
	e.state.Error = ""
	e.state.BackendConnected = source == SourceRemote
	e.source = source
}

// reset returns to the anonymous state. BackendConnected describes the
// service, not the user, and survives.
func (e *Engine) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.User = nil
	e.state.IsAuthenticated = false
	e.state.Error = ""
	e.source = SourceNone
}

// failAnonymous ends any current session and reports msg.
func (e *Engine) failAnonymous(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.User = nil
	e.state.IsAuthenticated = false
	e.state.Error = msg
	e.source = SourceNone
}

func (e *Engine) fail(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Error = msg
}

func (e *Engine) setBackendConnected(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.BackendConnected = v
}

// current returns the authenticated user, if any.
func (e *Engine) current() (User, AuthSource, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.IsAuthenticated || e.state.User == nil {
		return User{}, SourceNone, false
	}
	return *e.state.User, e.source, true
}

func (e *Engine) backendConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.BackendConnected
}

/*
====================================
REMOTE CALLS
====================================
*/

// callRemote runs fn against the remote service, recording latency and
// failures. Unavailability, including a missing service, is returned wrapped
// in ErrNetworkFailure.
func (e *Engine) callRemote(op string, fn func(remote.Service) error) error {
	if e.remote == nil {
		return fmt.Errorf("%w: %w", ErrNetworkFailure, remote.ErrUnavailable)
	}

	start := e.now()
	err := fn(e.remote)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricRemoteLatency, e.now().Sub(start))
	}
	if err != nil {
		e.metricInc(MetricRemoteUnavailable)
		e.log.Warn("remote auth call failed", zap.String("op", op), zap.Error(err))
		if errors.Is(err, remote.ErrUnavailable) {
			return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
		}
	}
	return err
}
