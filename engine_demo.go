package fitAuth

import (
	"context"

	"github.com/fitlife/fitAuth/demo"
)

// DemoStatus reports the demo slot as seen by this tab.
func (e *Engine) DemoStatus(ctx context.Context) (demo.Status, error) {
	return e.demo.Status(ctx)
}

// ResetDemo deletes the demo usage record so the demo can be used again.
// Intended for development and tests.
func (e *Engine) ResetDemo(ctx context.Context) error {
	return e.demo.Reset(ctx)
}

// IsDemoUser reports whether the current user is the demo identity.
func (e *Engine) IsDemoUser() bool {
	u, _, ok := e.current()
	return ok && e.demo.IsDemoEmail(u.Email)
}
