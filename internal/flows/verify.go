package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
)

// VerifyFailureKind classifies why a token was not confirmed.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	// VerifyFailureRejected: the server said the token is invalid.
	VerifyFailureRejected
	// VerifyFailureMalformed: success status without a user payload.
	VerifyFailureMalformed
	// VerifyFailureConnectivity: the server could not be reached and no record
	// for the token exists.
	VerifyFailureConnectivity
)

func (k VerifyFailureKind) String() string {
	switch k {
	case VerifyFailureRejected:
		return "rejected"
	case VerifyFailureMalformed:
		return "malformed"
	case VerifyFailureConnectivity:
		return "connectivity"
	}
	return "none"
}

// VerifyResult is the outcome of RunVerify.
type VerifyResult struct {
	Valid bool
	User  *session.User
	// FromCache marks the degraded path: the server was unreachable and an
	// expired record for the same token was reused.
	FromCache bool
	// Network reports whether a round trip was attempted.
	Network bool
	Failure VerifyFailureKind
	Err     error
}

// VerifyDeps captures verification cache dependencies.
type VerifyDeps struct {
	Now         func() time.Time
	TTL         time.Duration
	LoadRecord  func(context.Context) (*session.VerificationRecord, error)
	SaveRecord  func(context.Context, session.VerificationRecord) error
	VerifyToken func(context.Context, string) (*session.User, error)
	Warn        func(string, ...any)
}

var errEmptyToken = errors.New("empty token")

// RunVerify answers whether token is valid, consulting the cached record first and
// falling back to it when the server is unreachable.
func RunVerify(ctx context.Context, token string, deps VerifyDeps) VerifyResult {
	if token == "" {
		return VerifyResult{Failure: VerifyFailureMalformed, Err: errEmptyToken}
	}

	now := deps.Now()
	rec, err := deps.LoadRecord(ctx)
	if err != nil {
		warn(deps.Warn, "goSession: verification record unreadable: %v", err)
		rec = nil
	}
	if rec.Usable(token, now, deps.TTL) {
		return VerifyResult{Valid: true, User: rec.User.Clone()}
	}

	user, err := deps.VerifyToken(ctx, token)
	switch {
	case err == nil && user != nil:
		fresh := session.VerificationRecord{Token: token, User: user.Clone(), VerifiedAt: deps.Now()}
		if saveErr := deps.SaveRecord(ctx, fresh); saveErr != nil {
			warn(deps.Warn, "goSession: verification record not saved: %v", saveErr)
		}
		return VerifyResult{Valid: true, User: user, Network: true}

	case err == nil || errors.Is(err, api.ErrMalformed):
		if err == nil {
			err = api.ErrMalformed
		}
		return VerifyResult{Network: true, Failure: VerifyFailureMalformed, Err: err}

	case api.IsConnectivity(err):
		if rec.Matches(token) {
			// VerifiedAt is kept so the record does not become fresh again.
			if saveErr := deps.SaveRecord(ctx, *rec); saveErr != nil {
				warn(deps.Warn, "goSession: verification record not saved: %v", saveErr)
			}
			return VerifyResult{Valid: true, User: rec.User.Clone(), FromCache: true, Network: true, Err: err}
		}
		return VerifyResult{Network: true, Failure: VerifyFailureConnectivity, Err: err}

	default:
		return VerifyResult{Network: true, Failure: VerifyFailureRejected, Err: err}
	}
}

func warn(fn func(string, ...any), format string, args ...any) {
	if fn != nil {
		fn(format, args...)
	}
}
