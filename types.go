package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// State is the Manager's position in its lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "uninitialized"
}

// EventKind identifies a session change.
type EventKind int

const (
	// EventAuthenticated: Initialize or Login produced a session.
	EventAuthenticated EventKind = iota + 1
	// EventUnauthenticated: Initialize ended without a session.
	EventUnauthenticated
	// EventRefreshed: the token was replaced by a refresh.
	EventRefreshed
	// EventLoggedOut: the session was cleared locally, by Logout or because
	// another instance logged out.
	EventLoggedOut
	// EventAdopted: a session written by another instance was taken over.
	EventAdopted
	// EventPropertiesChanged: the property list was fetched, adopted or cleared.
	EventPropertiesChanged
)

func (k EventKind) String() string {
	switch k {
	case EventAuthenticated:
		return "authenticated"
	case EventUnauthenticated:
		return "unauthenticated"
	case EventRefreshed:
		return "refreshed"
	case EventLoggedOut:
		return "logged_out"
	case EventAdopted:
		return "adopted"
	case EventPropertiesChanged:
		return "properties_changed"
	}
	return "unknown"
}

// Event is delivered to subscribers after the state change it describes.
type Event struct {
	Kind    EventKind
	State   State
	Session session.Session
	// RedirectToLogin asks the consumer to show the login surface.
	RedirectToLogin bool
	// Properties is set for EventPropertiesChanged.
	Properties []session.Property
}

// VerifyResult is the outcome of Manager.Verify.
type VerifyResult struct {
	Valid bool
	User  *session.User
	// FromCache marks a degraded answer: the server was unreachable and an
	// older verification of the same token was reused.
	FromCache bool
	Err       error
}

// APIClient is the collaborator API used by the Manager. *api.Client implements it.
type APIClient interface {
	Login(ctx context.Context, creds api.Credentials) (api.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (api.RefreshResponse, error)
	VerifyToken(ctx context.Context, token string) (*session.User, error)
	Logout(ctx context.Context) error
	Properties(ctx context.Context) ([]session.Property, error)
	Bearer() *transport.Bearer
}

// Logger receives the Manager's diagnostics.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// Reloader is invoked after a logout so the host can discard every in-memory
// reference to the old session (the process-level analog of a page reload).
type Reloader interface {
	Reload(ctx context.Context)
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(ctx context.Context)

func (f ReloaderFunc) Reload(ctx context.Context) { f(ctx) }
