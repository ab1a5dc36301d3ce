package flows

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
)

type fakeRefresher struct {
	calls     int
	presented string
	resp      api.RefreshResponse
	err       error
}

func (f *fakeRefresher) Refresh(_ context.Context, token string) (api.RefreshResponse, error) {
	f.calls++
	f.presented = token
	return f.resp, f.err
}

func TestRefreshWithoutRefreshTokenSkipsNetwork(t *testing.T) {
	f := &fakeRefresher{}
	res := RunRefresh(context.Background(), session.Session{Token: "abc", User: mgr, Authenticated: true}, RefreshDeps{Refresh: f.Refresh})
	require.Equal(t, RefreshFailureNoToken, res.Failure)
	require.Zero(t, f.calls)
}

func TestRefreshReplacesTokenAndKeepsRefreshToken(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeRefresher{resp: api.RefreshResponse{Token: "new", User: mgr}}
	deps := RefreshDeps{
		Refresh:   f.Refresh,
		ExpiresAt: func(string) (time.Time, bool) { return exp, true },
	}

	res := RunRefresh(context.Background(), storedSession, deps)
	require.Equal(t, RefreshFailureNone, res.Failure)
	require.Equal(t, "r1", f.presented)
	require.Equal(t, "new", res.Session.Token)
	require.Equal(t, "r1", res.Session.RefreshToken)
	require.True(t, res.Session.Authenticated)
	require.False(t, res.Rotated)
	require.Equal(t, exp, res.Session.ExpiresAt)
}

func TestRefreshRotatesRefreshToken(t *testing.T) {
	f := &fakeRefresher{resp: api.RefreshResponse{Token: "new", RefreshToken: "r2", User: mgr}}
	res := RunRefresh(context.Background(), storedSession, RefreshDeps{Refresh: f.Refresh})
	require.True(t, res.Rotated)
	require.Equal(t, "r2", res.Session.RefreshToken)
}

func TestRefreshFailureClassification(t *testing.T) {
	cases := map[error]RefreshFailureKind{
		api.ErrConnectivity: RefreshFailureConnectivity,
		api.ErrRejected:     RefreshFailureRejected,
		api.ErrMalformed:    RefreshFailureMalformed,
	}
	for err, want := range cases {
		f := &fakeRefresher{err: err}
		res := RunRefresh(context.Background(), storedSession, RefreshDeps{Refresh: f.Refresh})
		require.Equal(t, want, res.Failure, err.Error())
		require.ErrorIs(t, res.Err, err)
	}
}

func TestRefreshIncompleteResponseIsMalformed(t *testing.T) {
	f := &fakeRefresher{resp: api.RefreshResponse{Token: "new"}}
	res := RunRefresh(context.Background(), storedSession, RefreshDeps{Refresh: f.Refresh})
	require.Equal(t, RefreshFailureMalformed, res.Failure)
}
