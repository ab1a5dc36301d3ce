package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoToken
	RefreshFailureConnectivity
	RefreshFailureRejected
	RefreshFailureMalformed
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNoToken:
		return "no_refresh_token"
	case RefreshFailureConnectivity:
		return "connectivity"
	case RefreshFailureRejected:
		return "rejected"
	case RefreshFailureMalformed:
		return "malformed"
	}
	return "none"
}

// RefreshResult carries either the replacement session or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Session session.Session
	// Rotated is set when the server issued a new refresh token.
	Rotated bool
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Refresh   func(context.Context, string) (api.RefreshResponse, error)
	ExpiresAt func(string) (time.Time, bool)
}

var errNoRefreshToken = errors.New("no refresh token")

// RunRefresh exchanges current.RefreshToken for a new token and user. Nothing is
// persisted; the caller commits the returned session.
func RunRefresh(ctx context.Context, current session.Session, deps RefreshDeps) RefreshResult {
	if current.RefreshToken == "" {
		return RefreshResult{Failure: RefreshFailureNoToken, Err: errNoRefreshToken}
	}

	resp, err := deps.Refresh(ctx, current.RefreshToken)
	if err != nil {
		kind := RefreshFailureRejected
		switch {
		case api.IsConnectivity(err):
			kind = RefreshFailureConnectivity
		case errors.Is(err, api.ErrMalformed):
			kind = RefreshFailureMalformed
		}
		return RefreshResult{Failure: kind, Err: err}
	}
	if resp.Token == "" || resp.User == nil {
		return RefreshResult{Failure: RefreshFailureMalformed, Err: api.ErrMalformed}
	}

	next := session.Session{
		Token:         resp.Token,
		RefreshToken:  current.RefreshToken,
		User:          resp.User,
		Authenticated: true,
	}
	rotated := resp.RefreshToken != "" && resp.RefreshToken != current.RefreshToken
	if rotated {
		next.RefreshToken = resp.RefreshToken
	}
	if deps.ExpiresAt != nil {
		if exp, ok := deps.ExpiresAt(next.Token); ok {
			next.ExpiresAt = exp
		}
	}
	return RefreshResult{Session: next, Rotated: rotated}
}
