//go:build integration
// +build integration

package test

import (
	"context"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

func TestLoginPropagatesAcrossInstances(t *testing.T) {
	c := newCluster(t)
	a := c.manager(t, nil)
	b := c.manager(t, nil)

	if got := b.Initialize(context.Background()); got != goSession.StateUnauthenticated {
		t.Fatalf("expected b unauthenticated, got %s", got)
	}

	user := session.User{ID: "7", Role: "manager"}
	c.login(t, a, user)

	eventually(t, "b to adopt the session", b.Authenticated)
	if a.Snapshot().Token != b.Snapshot().Token {
		t.Fatal("expected both instances to hold the same token")
	}
	if c.api.Calls(api.PathVerifyToken) != 1 {
		t.Fatalf("expected adoption without re-verification, got %d verify calls", c.api.Calls(api.PathVerifyToken))
	}
}

func TestLogoutPropagatesAcrossInstances(t *testing.T) {
	c := newCluster(t)
	a := c.manager(t, nil)
	b := c.manager(t, nil)

	var events []goSession.Event
	done := make(chan struct{}, 1)
	cancel := b.Subscribe(func(ev goSession.Event) {
		if ev.Kind == goSession.EventLoggedOut {
			events = append(events, ev)
			done <- struct{}{}
		}
	})
	defer cancel()

	c.login(t, a, session.User{ID: "7", Role: "manager"})
	eventually(t, "b to adopt the session", b.Authenticated)

	a.Logout(context.Background())
	eventually(t, "b to log out", func() bool { return !b.Authenticated() })
	<-done

	if !events[0].RedirectToLogin {
		t.Fatal("expected the forced logout to ask for the login surface")
	}
	if c.api.Calls(api.PathLogout) != 1 {
		t.Fatalf("expected one server logout, got %d", c.api.Calls(api.PathLogout))
	}
	if c.mr.Exists("it:" + storage.KeySession) {
		t.Fatal("expected the durable session to be gone")
	}
}

func TestSharedPropertiesAcrossInstances(t *testing.T) {
	c := newCluster(t)
	share := func(cfg *goSession.Config) {
		cfg.Properties.ShareAcrossInstances = true
		cfg.Metrics.Enabled = true
	}
	a := c.manager(t, share)
	b := c.manager(t, share)

	user := session.User{ID: "7", Role: "manager"}
	c.api.SetProperties(user.ID, []session.Property{{ID: "1", Name: "North Block"}})
	c.login(t, a, user)
	eventually(t, "b to adopt the session", b.Authenticated)

	if got := a.GetProperties(context.Background(), false); len(got) != 1 {
		t.Fatalf("expected one property, got %d", len(got))
	}

	eventually(t, "b to adopt the property list", func() bool {
		return b.MetricsSnapshot().Counters[goSession.MetricSyncProperties] > 0
	})
	if got := b.GetProperties(context.Background(), false); len(got) != 1 || got[0].Name != "North Block" {
		t.Fatalf("unexpected adopted list %+v", got)
	}
	if n := c.api.Calls(api.PathProperties); n != 1 {
		t.Fatalf("expected a single property fetch across both instances, got %d", n)
	}
}

func TestStoredSessionSurvivesRestart(t *testing.T) {
	c := newCluster(t)
	a := c.manager(t, nil)
	c.login(t, a, session.User{ID: "7", Role: "manager"})
	a.Close()

	restarted := c.manager(t, nil)
	if got := restarted.Initialize(context.Background()); got != goSession.StateAuthenticated {
		t.Fatalf("expected restarted instance authenticated, got %s", got)
	}
	if restarted.Snapshot().User.ID != "7" {
		t.Fatalf("expected user 7, got %s", restarted.Snapshot().User.ID)
	}
}
