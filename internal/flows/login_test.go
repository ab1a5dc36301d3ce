package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

type loginHarness struct {
	clock       *fakeClock
	rec         Records
	verifier    *fakeVerifier
	transport   []string
	invalidated int
}

func newLoginHarness() *loginHarness {
	return &loginHarness{clock: newClock(), rec: newRecords(), verifier: &fakeVerifier{user: mgr}}
}

func (h *loginHarness) deps() LoginDeps {
	vdeps := verifyDeps(h.clock, h.rec, h.verifier)
	return LoginDeps{
		SetTransport: func(token string) { h.transport = append(h.transport, token) },
		Verify: func(ctx context.Context, token string) VerifyResult {
			return RunVerify(ctx, token, vdeps)
		},
		SaveSession:          h.rec.SaveSession,
		ClearSession:         h.rec.ClearSession,
		InvalidateProperties: func(context.Context) { h.invalidated++ },
	}
}

func TestLoginScenarioManager(t *testing.T) {
	h := newLoginHarness()
	resp := api.LoginResponse{Token: "abc", RefreshToken: "r1", User: &session.User{ID: "1", Role: "manager"}}

	res := RunLogin(context.Background(), resp, h.deps())
	require.Equal(t, LoginFailureNone, res.Failure)
	require.Equal(t, "abc", res.Session.Token)
	require.Equal(t, "r1", res.Session.RefreshToken)
	require.True(t, res.Session.Authenticated)
	require.Equal(t, session.ID("1"), res.Session.User.ID)
	require.Equal(t, "manager", res.Session.User.Role)

	require.Equal(t, []string{"abc"}, h.transport)
	require.Equal(t, 1, h.invalidated)

	stored, ok, err := h.rec.LoadSession(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", stored.Token)
}

func TestLoginRejectsIncompleteResponse(t *testing.T) {
	for _, resp := range []api.LoginResponse{
		{User: mgr},
		{Token: "abc"},
	} {
		h := newLoginHarness()
		res := RunLogin(context.Background(), resp, h.deps())
		require.Equal(t, LoginFailureInvalidData, res.Failure)
		require.Empty(t, h.transport)
		require.Zero(t, h.verifier.calls)
	}
}

func TestLoginVerificationRejectionRollsBack(t *testing.T) {
	h := newLoginHarness()
	ctx := context.Background()
	require.NoError(t, h.rec.Durable.Set(ctx, storage.KeySession, "leftover"))
	h.verifier.user, h.verifier.err = nil, api.ErrRejected

	res := RunLogin(ctx, api.LoginResponse{Token: "abc", User: mgr}, h.deps())
	require.Equal(t, LoginFailureVerification, res.Failure)
	require.Equal(t, []string{"abc", ""}, h.transport)
	require.Zero(t, h.invalidated)

	_, ok, err := h.rec.Durable.Get(ctx, storage.KeySession)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoginProceedsWhenVerificationUnreachable(t *testing.T) {
	h := newLoginHarness()
	h.verifier.user, h.verifier.err = nil, api.ErrConnectivity

	res := RunLogin(context.Background(), api.LoginResponse{Token: "abc", User: mgr}, h.deps())
	require.Equal(t, LoginFailureNone, res.Failure)
	require.Equal(t, mgr.ID, res.Session.User.ID)
	require.Equal(t, []string{"abc"}, h.transport)
}

func TestLoginUsesVerifiedUser(t *testing.T) {
	h := newLoginHarness()
	h.verifier.user = &session.User{ID: "1", Role: "manager", Subscription: "pro"}

	res := RunLogin(context.Background(), api.LoginResponse{Token: "abc", User: mgr}, h.deps())
	require.Equal(t, "pro", res.Session.User.Subscription)
}
