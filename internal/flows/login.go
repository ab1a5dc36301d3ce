package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidData
	LoginFailureVerification
)

// LoginResult carries the committed session or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Session session.Session
	Verify  VerifyResult
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	SetTransport         func(token string)
	Verify               func(context.Context, string) VerifyResult
	SaveSession          func(context.Context, session.Session) error
	ClearSession         func(context.Context) error
	InvalidateProperties func(context.Context)
	ExpiresAt            func(string) (time.Time, bool)
	Warn                 func(string, ...any)
}

var errInvalidLoginData = errors.New("login response lacks token or user")

// RunLogin establishes a session from a login response. The transport carries the
// new token before verification; a verification failure that is not a
// connectivity failure rolls back transport and durable state.
func RunLogin(ctx context.Context, resp api.LoginResponse, deps LoginDeps) LoginResult {
	if resp.Token == "" || resp.User == nil {
		return LoginResult{Failure: LoginFailureInvalidData, Err: errInvalidLoginData}
	}

	deps.SetTransport(resp.Token)

	v := deps.Verify(ctx, resp.Token)
	if !v.Valid && v.Failure != VerifyFailureConnectivity {
		deps.SetTransport("")
		if err := deps.ClearSession(ctx); err != nil {
			warn(deps.Warn, "goSession: clearing session after failed login: %v", err)
		}
		return LoginResult{Failure: LoginFailureVerification, Err: v.Err, Verify: v}
	}

	user := resp.User
	if v.Valid && v.User != nil {
		user = v.User
	}
	s := session.Session{
		Token:         resp.Token,
		RefreshToken:  resp.RefreshToken,
		User:          user,
		Authenticated: true,
	}
	if deps.ExpiresAt != nil {
		if exp, ok := deps.ExpiresAt(s.Token); ok {
			s.ExpiresAt = exp
		}
	}

	if err := deps.SaveSession(ctx, s); err != nil {
		warn(deps.Warn, "goSession: session not persisted: %v", err)
	}
	deps.InvalidateProperties(ctx)

	return LoginResult{Session: s, Verify: v}
}
