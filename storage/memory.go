package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process store, used for the ephemeral scope.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Hub is a durable scope shared by several instances in one process. Each
// [HubStore] returned by Attach acts as one instance: its writes are visible to all
// and are announced to every other attached store's watchers.
type Hub struct {
	mu     sync.Mutex
	data   map[string]string
	subs   map[uint64]*hubSubscriber
	nextID uint64
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		data: make(map[string]string),
		subs: make(map[uint64]*hubSubscriber),
	}
}

// Attach returns a store bound to a fresh instance origin.
func (h *Hub) Attach() *HubStore {
	return &HubStore{hub: h, origin: uuid.NewString()}
}

func (h *Hub) publish(c Change) {
	for _, sub := range h.subs {
		if sub.origin == c.Origin {
			continue
		}
		sub.push(c)
	}
}

// HubStore is one instance's view of a [Hub].
type HubStore struct {
	hub    *Hub
	origin string
}

// Origin returns the instance identifier stamped on this store's changes.
func (s *HubStore) Origin() string { return s.origin }

func (s *HubStore) Get(_ context.Context, key string) (string, bool, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	v, ok := s.hub.data[key]
	return v, ok, nil
}

func (s *HubStore) Set(_ context.Context, key, value string) error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if prev, ok := s.hub.data[key]; ok && prev == value {
		return nil
	}
	s.hub.data[key] = value
	s.hub.publish(Change{Key: key, Value: value, Origin: s.origin})
	return nil
}

func (s *HubStore) Remove(_ context.Context, key string) error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if _, ok := s.hub.data[key]; !ok {
		return nil
	}
	delete(s.hub.data, key)
	s.hub.publish(Change{Key: key, Removed: true, Origin: s.origin})
	return nil
}

func (s *HubStore) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	sub := &hubSubscriber{origin: s.origin, wake: make(chan struct{}, 1), done: make(chan struct{})}

	s.hub.mu.Lock()
	id := s.hub.nextID
	s.hub.nextID++
	s.hub.subs[id] = sub
	s.hub.mu.Unlock()

	exited := make(chan struct{})
	var once sync.Once
	halt := func() {
		once.Do(func() {
			s.hub.mu.Lock()
			delete(s.hub.subs, id)
			s.hub.mu.Unlock()
			close(sub.done)
		})
	}
	stop := func() {
		halt()
		<-exited
	}

	go func() {
		defer close(exited)
		for {
			select {
			case <-ctx.Done():
				halt()
				return
			case <-sub.done:
				return
			case <-sub.wake:
				for _, c := range sub.drain() {
					fn(c)
				}
			}
		}
	}()

	return stop, nil
}

// hubSubscriber queues changes so writers never block on slow watchers.
type hubSubscriber struct {
	origin string
	mu     sync.Mutex
	queue  []Change
	wake   chan struct{}
	done   chan struct{}
}

func (s *hubSubscriber) push(c Change) {
	s.mu.Lock()
	s.queue = append(s.queue, c)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *hubSubscriber) drain() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.queue
	s.queue = nil
	return out
}
