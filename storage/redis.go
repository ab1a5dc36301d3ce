package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the durable scope in Redis. Values live under "<prefix>:<key>";
// every mutation is published on "<prefix>:changes" stamped with the store's origin,
// which is how other instances learn about it.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	origin string
	ttl    time.Duration
}

// NewRedisStore creates a durable store on client. prefix namespaces keys and the
// change channel; ttl, when > 0, bounds how long an abandoned value survives.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		origin: uuid.NewString(),
		ttl:    ttl,
	}
}

// Origin returns the instance identifier stamped on published changes.
func (s *RedisStore) Origin() string { return s.origin }

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) channel() string {
	return s.prefix + ":changes"
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	msg, err := json.Marshal(Change{Key: key, Value: value, Origin: s.origin})
	if err != nil {
		return err
	}
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(key), value, s.ttl)
		pipe.Publish(ctx, s.channel(), msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	msg, err := json.Marshal(Change{Key: key, Removed: true, Origin: s.origin})
	if err != nil {
		return err
	}
	n, err := s.redis.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// Removing an absent key is not announced.
	if n == 0 {
		return nil
	}
	if err := s.redis.Publish(ctx, s.channel(), msg).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	ps := s.redis.Subscribe(ctx, s.channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	var once sync.Once
	halt := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	stop := func() {
		halt()
		<-exited
	}

	ch := ps.Channel()
	go func() {
		defer close(exited)
		for {
			select {
			case <-ctx.Done():
				halt()
				return
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					continue
				}
				if c.Origin == s.origin || c.Key == "" {
					continue
				}
				fn(c)
			}
		}
	}()

	return stop, nil
}
