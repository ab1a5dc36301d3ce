//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/apitest"
	"github.com/MrEthical07/goSession/session"
)

func TestConcurrentRefreshKeepsUsableSession(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t, apitest.WithRefreshRotation())
	m := c.manager(t, func(cfg *goSession.Config) { cfg.Refresh.Enabled = false })
	c.login(t, m, session.User{ID: "7", Role: "manager"})

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			results <- m.RefreshToken(ctx)
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, goSession.ErrRefreshFailed), errors.Is(err, goSession.ErrSessionChanged):
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	if success == 0 {
		t.Fatal("expected at least one refresh to win")
	}

	if !m.Authenticated() {
		t.Fatal("expected the session to survive lost refresh races")
	}
	// The refresh token left in memory must be the live one.
	if err := m.RefreshToken(ctx); err != nil {
		t.Fatalf("follow-up refresh failed: %v", err)
	}
}
