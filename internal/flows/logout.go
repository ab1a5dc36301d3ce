package flows

import (
	"context"
)

// LogoutResult reports what the best-effort server call did. Local cleanup always
// completes.
type LogoutResult struct {
	ServerCalled bool
	ServerErr    error
}

// LogoutDeps captures logout flow dependencies. Every Clear step runs even when an
// earlier one fails.
type LogoutDeps struct {
	HasToken     func() bool
	ServerLogout func(context.Context) error

	ClearSession      func(context.Context) error
	ClearVerification func(context.Context) error
	ClearMarker       func(context.Context) error
	ClearProperties   func(context.Context)
	ClearCookies      func()
	ClearTransport    func()
	ClearMemory       func()
	Warn              func(string, ...any)
}

// RunLogout tells the server (unless local is set or there is no token), then
// clears every piece of session state.
func RunLogout(ctx context.Context, local bool, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	if !local && deps.ServerLogout != nil && deps.HasToken() {
		res.ServerCalled = true
		if err := deps.ServerLogout(ctx); err != nil {
			res.ServerErr = err
			warn(deps.Warn, "goSession: server logout failed (ignored): %v", err)
		}
	}

	if err := deps.ClearSession(ctx); err != nil {
		warn(deps.Warn, "goSession: clearing stored session: %v", err)
	}
	if err := deps.ClearVerification(ctx); err != nil {
		warn(deps.Warn, "goSession: clearing verification record: %v", err)
	}
	if err := deps.ClearMarker(ctx); err != nil {
		warn(deps.Warn, "goSession: clearing initialization marker: %v", err)
	}
	deps.ClearProperties(ctx)
	if deps.ClearCookies != nil {
		deps.ClearCookies()
	}
	deps.ClearTransport()
	deps.ClearMemory()
	return res
}
