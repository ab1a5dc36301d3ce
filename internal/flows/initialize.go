package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// InitOutcome records which branch startup took.
type InitOutcome int

const (
	// InitNoSession: nothing stored (or the store was unreadable).
	InitNoSession InitOutcome = iota
	// InitCorrupt: the stored record was unusable and has been cleared.
	InitCorrupt
	// InitTrusted: a fresh initialization marker allowed skipping verification.
	InitTrusted
	// InitVerified: the server (or a fresh cached record) confirmed the token.
	InitVerified
	// InitDegraded: the server was unreachable and an older record was reused.
	InitDegraded
	// InitOffline: the server was unreachable; the stored session is kept as is.
	InitOffline
	// InitRefreshed: the token was rejected and a refresh replaced it.
	InitRefreshed
	// InitCleared: the token was rejected and refresh failed; state was cleared.
	InitCleared
)

func (o InitOutcome) String() string {
	switch o {
	case InitCorrupt:
		return "corrupt"
	case InitTrusted:
		return "trusted"
	case InitVerified:
		return "verified"
	case InitDegraded:
		return "degraded"
	case InitOffline:
		return "offline"
	case InitRefreshed:
		return "refreshed"
	case InitCleared:
		return "cleared"
	}
	return "no_session"
}

// Authenticated reports whether the outcome leaves a usable session.
func (o InitOutcome) Authenticated() bool {
	switch o {
	case InitTrusted, InitVerified, InitDegraded, InitOffline, InitRefreshed:
		return true
	}
	return false
}

// InitResult is the outcome of RunInitialize.
type InitResult struct {
	Outcome InitOutcome
	Session session.Session
	Verify  VerifyResult
	Err     error
}

// InitDeps captures startup dependencies.
type InitDeps struct {
	Now          func() time.Time
	MarkerTTL    time.Duration
	LoadSession  func(context.Context) (session.Session, bool, error)
	ClearSession func(context.Context) error
	LoadMarker   func(context.Context) (time.Time, bool, error)
	SaveMarker   func(context.Context, time.Time) error
	Verify       func(context.Context, string) VerifyResult
	// Refresh exchanges the stored refresh token; it persists nothing.
	Refresh func(context.Context, session.Session) RefreshResult
	// ClearAll removes every trace of the session (durable and ephemeral).
	ClearAll func(context.Context)
	Warn     func(string, ...any)
}

// RunInitialize resolves the stored session into a terminal outcome. It never fails;
// errors are reported in InitResult.Err for logging only.
func RunInitialize(ctx context.Context, deps InitDeps) InitResult {
	stored, ok, err := deps.LoadSession(ctx)
	switch {
	case err != nil && (errors.Is(err, session.ErrCorrupt) || errors.Is(err, session.ErrIncomplete) || errors.Is(err, session.ErrUnsupportedVersion)):
		if clearErr := deps.ClearSession(ctx); clearErr != nil {
			warn(deps.Warn, "goSession: clearing corrupt session failed: %v", clearErr)
		}
		return InitResult{Outcome: InitCorrupt, Err: err}
	case err != nil:
		warn(deps.Warn, "goSession: session store unreadable, treating as empty: %v", err)
		return InitResult{Outcome: InitNoSession, Err: err}
	case !ok:
		return InitResult{Outcome: InitNoSession}
	}

	marker, ok, err := deps.LoadMarker(ctx)
	if err != nil {
		warn(deps.Warn, "goSession: initialization marker unreadable: %v", err)
	}
	if ok && deps.Now().Sub(marker) < deps.MarkerTTL {
		return InitResult{Outcome: InitTrusted, Session: stored}
	}

	v := deps.Verify(ctx, stored.Token)
	if v.Valid {
		stored.User = v.User
		if v.FromCache {
			return InitResult{Outcome: InitDegraded, Session: stored, Verify: v}
		}
		if err := deps.SaveMarker(ctx, deps.Now()); err != nil {
			warn(deps.Warn, "goSession: initialization marker not saved: %v", err)
		}
		return InitResult{Outcome: InitVerified, Session: stored, Verify: v}
	}

	if v.Failure == VerifyFailureConnectivity {
		return InitResult{Outcome: InitOffline, Session: stored, Verify: v, Err: v.Err}
	}

	r := deps.Refresh(ctx, stored)
	if r.Failure == RefreshFailureNone {
		return InitResult{Outcome: InitRefreshed, Session: r.Session, Verify: v}
	}

	deps.ClearAll(ctx)
	return InitResult{Outcome: InitCleared, Verify: v, Err: errors.Join(v.Err, r.Err)}
}
