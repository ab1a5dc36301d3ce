//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/internal/apitest"
	"github.com/MrEthical07/goSession/internal/logger"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// cluster is a fake API plus one Redis shared by every Manager it builds, the
// way separate processes on one host share a durable store.
type cluster struct {
	api *apitest.Server
	mr  *miniredis.Miniredis
}

func newCluster(t *testing.T, opts ...apitest.Option) *cluster {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	srv := apitest.NewServer(opts...)
	t.Cleanup(srv.Close)

	return &cluster{api: srv, mr: mr}
}

// manager builds a Manager with its own Redis connection.
func (c *cluster) manager(t *testing.T, mutate func(*goSession.Config)) *goSession.Manager {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: c.mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goSession.DefaultConfig()
	cfg.API.BaseURL = c.api.URL
	cfg.API.Timeout = time.Second
	cfg.API.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := goSession.New().
		WithConfig(cfg).
		WithDurableStore(storage.NewRedisStore(rdb, "it", 0)).
		WithLogger(logger.Discard()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func (c *cluster) login(t *testing.T, m *goSession.Manager, user session.User) {
	t.Helper()
	token, refresh := c.api.Issue(user)
	u := user
	if err := m.Login(context.Background(), api.LoginResponse{Token: token, RefreshToken: refresh, User: &u}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
