package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

type logoutHarness struct {
	rec         Records
	token       string
	serverCalls int
	serverErr   error
	steps       []string
	warnings    int
}

func (h *logoutHarness) deps() LogoutDeps {
	return LogoutDeps{
		HasToken: func() bool { return h.token != "" },
		ServerLogout: func(context.Context) error {
			h.serverCalls++
			h.steps = append(h.steps, "server")
			return h.serverErr
		},
		ClearSession:      h.rec.ClearSession,
		ClearVerification: h.rec.ClearVerification,
		ClearMarker:       h.rec.ClearMarker,
		ClearProperties:   func(ctx context.Context) { _ = h.rec.ClearProperties(ctx); h.steps = append(h.steps, "properties") },
		ClearCookies:      func() { h.steps = append(h.steps, "cookies") },
		ClearTransport:    func() { h.steps = append(h.steps, "transport") },
		ClearMemory:       func() { h.token = ""; h.steps = append(h.steps, "memory") },
		Warn:              func(string, ...any) { h.warnings++ },
	}
}

func seedEverything(t *testing.T, rec Records) {
	t.Helper()
	ctx := context.Background()
	clock := newClock()
	require.NoError(t, rec.SaveSession(ctx, storedSession))
	require.NoError(t, rec.SaveVerification(ctx, session.VerificationRecord{Token: "abc", User: mgr, VerifiedAt: clock.Now()}))
	require.NoError(t, rec.SaveMarker(ctx, clock.Now()))
	require.NoError(t, rec.SaveProperties(ctx, session.PropertyEntry{Properties: []session.Property{{ID: "1", Name: "A"}}, FetchedAt: clock.Now(), Owner: "1"}))
}

func TestLogoutClearsEverythingEvenWhenServerFails(t *testing.T) {
	h := &logoutHarness{rec: newRecords(), token: "abc", serverErr: errors.New("boom")}
	seedEverything(t, h.rec)

	res := RunLogout(context.Background(), false, h.deps())
	require.True(t, res.ServerCalled)
	require.Error(t, res.ServerErr)
	require.Equal(t, 1, h.warnings)
	require.Equal(t, []string{"server", "properties", "cookies", "transport", "memory"}, h.steps)

	mem := h.rec.Ephemeral.(*storage.MemoryStore)
	require.Zero(t, mem.Len())
	_, ok, _ := h.rec.Durable.Get(context.Background(), storage.KeySession)
	require.False(t, ok)
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := &logoutHarness{rec: newRecords(), token: "abc"}
	RunLogout(context.Background(), false, h.deps())
	res := RunLogout(context.Background(), false, h.deps())

	require.False(t, res.ServerCalled, "no token, no server call")
	require.Equal(t, 1, h.serverCalls)
	require.Zero(t, h.warnings)
}

func TestLocalLogoutSkipsServer(t *testing.T) {
	h := &logoutHarness{rec: newRecords(), token: "abc"}
	res := RunLogout(context.Background(), true, h.deps())
	require.False(t, res.ServerCalled)
	require.Zero(t, h.serverCalls)
	require.Empty(t, h.token)
}
