package goSession

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher hands events to the sink on one background goroutine so that
// session operations never wait on audit I/O. A nil dispatcher is valid and
// discards everything.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	// instance and now stamp events that arrive without them.
	instance string
	now      func() time.Time

	queue   chan AuditEvent
	closing chan struct{}
	// mu orders sends against close(queue).
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	worker    sync.WaitGroup

	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		now:        time.Now,
		queue:      make(chan AuditEvent, size),
		closing:    make(chan struct{}),
	}
	d.worker.Add(1)
	go func() {
		defer d.worker.Done()
		for ev := range d.queue {
			d.sink.Emit(context.Background(), ev)
		}
	}()
	return d
}

// Emit stamps and queues event. With DropIfFull a full queue drops it; otherwise
// Emit waits for room, ctx or Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = d.stamp(event)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.closing:
	}
}

func (d *auditDispatcher) stamp(ev AuditEvent) AuditEvent {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = d.now()
	}
	if ev.Instance == "" {
		ev.Instance = d.instance
	}
	ev.Metadata = redactCredentials(ev.Metadata)
	return ev
}

// redactCredentials drops metadata entries whose key names a credential. The
// Manager never puts tokens in metadata; this keeps a future caller from doing so.
func redactCredentials(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return meta
	}
	var out map[string]string
	for k := range meta {
		if !isCredentialKey(k) {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(meta))
			for kk, vv := range meta {
				out[kk] = vv
			}
		}
		delete(out, k)
	}
	if out == nil {
		return meta
	}
	return out
}

func isCredentialKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "token") || strings.Contains(k, "password") || k == "authorization"
}

// Close stops accepting events, delivers what is queued and waits for the
// worker. Idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.closing)
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.worker.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
