package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStoreTest(t *testing.T) (*miniredis.Miniredis, func() *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, func() *RedisStore {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return NewRedisStore(rdb, "test", 0)
	}
}

func TestRedisStoreGetSetRemove(t *testing.T) {
	mr, newStore := newRedisStoreTest(t)
	s := newStore()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeySession)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, KeySession, `{"token":"abc"}`))
	raw, err := mr.Get("test:" + KeySession)
	require.NoError(t, err)
	require.Equal(t, `{"token":"abc"}`, raw)

	v, ok, err := s.Get(ctx, KeySession)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"token":"abc"}`, v)

	require.NoError(t, s.Remove(ctx, KeySession))
	require.NoError(t, s.Remove(ctx, KeySession))
	require.False(t, mr.Exists("test:"+KeySession))
}

func TestRedisStoreTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedisStore(rdb, "ttl", time.Minute)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", "v"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreWatchDeliversOtherInstances(t *testing.T) {
	_, newStore := newRedisStoreTest(t)
	a, b := newStore(), newStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got changeRecorder
	stop, err := a.Watch(ctx, got.record)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, a.Set(ctx, KeySession, "mine"))
	require.NoError(t, b.Set(ctx, KeySession, "theirs"))
	require.NoError(t, b.Remove(ctx, KeySession))

	require.Eventually(t, func() bool { return len(got.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	changes := got.snapshot()
	require.Equal(t, "theirs", changes[0].Value)
	require.Equal(t, b.Origin(), changes[0].Origin)
	require.True(t, changes[1].Removed)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	s := NewRedisStore(rdb, "down", 0)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, s.Set(ctx, "k", "v"), ErrUnavailable)
	_, err = s.Watch(ctx, func(Change) {})
	require.ErrorIs(t, err, ErrUnavailable)
}
