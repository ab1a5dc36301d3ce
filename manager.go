package goSession

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/transport"
)

// Manager owns the session of one client instance. It is created by Builder.Build
// and is safe for concurrent use.
//
// Manager state is guarded by a mutex that is never held across a network call or
// a subscriber callback.
type Manager struct {
	cfg       Config
	records   flows.Records
	durable   storage.Store
	client    APIClient
	bearer    *transport.Bearer
	jar       http.CookieJar
	cookieURL *url.URL
	log       Logger
	reloader  Reloader
	audit     *auditDispatcher
	metrics   *Metrics
	flows     flows.Service
	now       func() time.Time
	instance  string

	mu    sync.Mutex
	state State
	sess  session.Session
	// epoch changes whenever sess is replaced or cleared, and when another
	// instance removes the durable session while Initialize is running.
	epoch    uint64
	props    *session.PropertyEntry
	propsGen uint64
	initDone chan struct{}

	refreshCancel context.CancelFunc
	syncStop      func()
	subs          map[uint64]func(Event)
	nextSub       uint64
	closed        bool

	bg sync.WaitGroup
}

func (m *Manager) flowDeps() flows.Deps {
	return flows.Deps{
		Verify: flows.VerifyDeps{
			Now:         m.now,
			TTL:         m.cfg.Verification.TTL,
			LoadRecord:  m.records.LoadVerification,
			SaveRecord:  m.records.SaveVerification,
			VerifyToken: m.verifyToken,
			Warn:        m.log.Warnf,
		},
		Initialize: flows.InitDeps{
			Now:          m.now,
			MarkerTTL:    m.cfg.Session.MarkerTTL,
			LoadSession:  m.records.LoadSession,
			ClearSession: m.records.ClearSession,
			LoadMarker:   m.records.LoadMarker,
			SaveMarker:   m.records.SaveMarker,
			Verify:       m.verify,
			Refresh: func(ctx context.Context, s session.Session) flows.RefreshResult {
				return m.flows.Refresh(ctx, s)
			},
			ClearAll: m.clearAll,
			Warn:     m.log.Warnf,
		},
		Login: flows.LoginDeps{
			SetTransport:         m.setTransport,
			Verify:               m.verify,
			SaveSession:          m.records.SaveSession,
			ClearSession:         m.records.ClearSession,
			InvalidateProperties: m.InvalidateProperties,
			ExpiresAt:            jwt.ExpiresAt,
			Warn:                 m.log.Warnf,
		},
		Refresh: flows.RefreshDeps{
			Refresh:   m.refreshCall,
			ExpiresAt: jwt.ExpiresAt,
		},
		Logout: flows.LogoutDeps{
			HasToken:          m.hasToken,
			ServerLogout:      m.logoutCall,
			ClearSession:      m.records.ClearSession,
			ClearVerification: m.records.ClearVerification,
			ClearMarker:       m.records.ClearMarker,
			ClearProperties:   m.clearProperties,
			ClearCookies:      m.clearCookies,
			ClearTransport:    func() { m.setTransport("") },
			ClearMemory:       m.clearMemory,
			Warn:              m.log.Warnf,
		},
	}
}

/*
====================================
OBSERVATION
====================================
*/

// Snapshot returns a copy of the current session. It is the zero Session when
// the Manager is not authenticated.
func (m *Manager) Snapshot() session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Clone()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether a token and a user are present.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated && m.sess.Valid()
}

// Subscribe registers fn for every subsequent Event. Events are delivered on the
// goroutine that caused them, after the state change. cancel unregisters fn.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// event builds an Event from the current state.
func (m *Manager) event(kind EventKind) Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Event{Kind: kind, State: m.state, Session: m.sess.Clone()}
}

// MetricsSnapshot returns a copy of the in-process counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped reports audit events dropped because the dispatcher queue was full.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Instance identifies this Manager in audit events.
func (m *Manager) Instance() string { return m.instance }

// Close stops the background refresher, cross-instance sync and the audit
// dispatcher, and returns once none of them can touch the Manager again. It must
// not be called from a Subscribe callback. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.refreshCancel != nil {
		m.refreshCancel()
		m.refreshCancel = nil
	}
	stop := m.syncStop
	m.syncStop = nil
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	m.bg.Wait()
	m.audit.Close()
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

/*
====================================
INITIALIZE
====================================
*/

// Initialize resolves the stored session and returns the resulting state. It
// never fails: unreadable storage counts as no session and any verification
// outcome maps to a state. Initialize runs once; concurrent and later calls wait
// for the first to finish and return the current state.
func (m *Manager) Initialize(ctx context.Context) State {
	m.mu.Lock()
	if m.closed || m.state != StateUninitialized {
		done := m.initDone
		m.mu.Unlock()
		if done != nil {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}
		return m.State()
	}
	done := make(chan struct{})
	m.initDone = done
	m.state = StateInitializing
	epoch := m.epoch
	m.mu.Unlock()
	defer close(done)

	res := m.flows.Initialize(ctx)
	m.metrics.Inc(MetricInitialize)
	switch res.Outcome {
	case flows.InitTrusted:
		m.metrics.Inc(MetricInitializeTrusted)
	case flows.InitCleared, flows.InitCorrupt:
		m.metrics.Inc(MetricInitializeCleared)
	}
	if res.Err != nil {
		m.log.Debugf("goSession: initialize %s: %v", res.Outcome, res.Err)
	}

	authenticated := res.Outcome.Authenticated() && res.Session.Valid()

	m.mu.Lock()
	if m.state != StateInitializing {
		// Login or a synchronized session won the race.
		st := m.state
		m.mu.Unlock()
		return st
	}
	// The session read above was removed by another instance meanwhile.
	removed := m.epoch != epoch
	if removed {
		authenticated = false
	}
	if authenticated {
		m.setSessionLocked(res.Session)
		m.state = StateAuthenticated
	} else {
		m.clearSessionLocked()
		m.state = StateUnauthenticated
	}
	st := m.state
	committed := m.sess.Clone()
	m.mu.Unlock()

	switch {
	case removed:
		m.metrics.Inc(MetricSyncLogout)
	case res.Outcome == flows.InitVerified, res.Outcome == flows.InitDegraded, res.Outcome == flows.InitRefreshed:
		if err := m.records.SaveSession(ctx, committed); err != nil {
			m.log.Warnf("goSession: session not persisted: %v", err)
		}
	}

	m.auditEvent(ctx, auditEventInitialize, authenticated, res.Err, map[string]string{"outcome": res.Outcome.String()})

	if authenticated {
		m.ensureRefresher()
		m.emit(m.event(EventAuthenticated))
	} else {
		ev := m.event(EventUnauthenticated)
		ev.RedirectToLogin = true
		m.emit(ev)
	}
	return st
}

/*
====================================
VERIFY
====================================
*/

// Verify answers whether token is accepted by the API. A fresh cached judgment is
// returned without a network call; when the API cannot be reached, an older
// judgment for the same token is reused and FromCache is set.
func (m *Manager) Verify(ctx context.Context, token string) VerifyResult {
	r := m.verify(ctx, token)
	return VerifyResult{Valid: r.Valid, User: r.User.Clone(), FromCache: r.FromCache, Err: r.Err}
}

func (m *Manager) verify(ctx context.Context, token string) flows.VerifyResult {
	start := time.Now()
	r := m.flows.Verify(ctx, token)

	switch {
	case r.Valid && !r.Network:
		m.metrics.Inc(MetricVerifyCacheHit)
	case r.Valid && r.FromCache:
		m.metrics.Inc(MetricVerifyDegraded)
	case r.Valid:
		m.metrics.Inc(MetricVerifySuccess)
	case r.Failure == flows.VerifyFailureMalformed:
		m.metrics.Inc(MetricVerifyMalformed)
	case r.Failure == flows.VerifyFailureConnectivity:
		m.metrics.Inc(MetricVerifyUnreachable)
	default:
		m.metrics.Inc(MetricVerifyRejected)
	}
	if r.Network {
		m.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	if !r.Valid {
		m.auditEvent(ctx, auditEventVerifyFailure, false, r.Err, map[string]string{"reason": r.Failure.String()})
	}
	return r
}

func (m *Manager) verifyToken(ctx context.Context, token string) (*session.User, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.client.VerifyToken(ctx, token)
}

/*
====================================
INTERNAL STATE
====================================
*/

// callContext bounds one API round trip.
func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.API.Timeout)
}

func (m *Manager) setTransport(token string) {
	if m.bearer != nil {
		m.bearer.SetToken(token)
	}
}

// setSessionLocked installs s as the authenticated session and points the
// transport at its token. Caller holds m.mu.
func (m *Manager) setSessionLocked(s session.Session) {
	s = s.Clone()
	s.Authenticated = true
	if s.ExpiresAt.IsZero() {
		if exp, ok := jwt.ExpiresAt(s.Token); ok {
			s.ExpiresAt = exp
		}
	}
	m.sess = s
	m.epoch++
	m.setTransport(s.Token)
}

func (m *Manager) clearSessionLocked() {
	m.sess = session.Session{}
	m.epoch++
	m.setTransport("")
}

func (m *Manager) clearMemory() {
	m.mu.Lock()
	m.clearSessionLocked()
	m.state = StateUnauthenticated
	m.props = nil
	m.propsGen++
	m.mu.Unlock()
}

func (m *Manager) hasToken() bool {
	if m.bearer != nil && m.bearer.Token() != "" {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Token != ""
}

// clearAll removes every trace of the session without calling the API.
func (m *Manager) clearAll(ctx context.Context) {
	if err := m.records.ClearSession(ctx); err != nil {
		m.log.Warnf("goSession: clearing stored session: %v", err)
	}
	if err := m.records.ClearVerification(ctx); err != nil {
		m.log.Warnf("goSession: clearing verification record: %v", err)
	}
	if err := m.records.ClearMarker(ctx); err != nil {
		m.log.Warnf("goSession: clearing initialization marker: %v", err)
	}
	m.clearProperties(ctx)
	m.setTransport("")
}

func (m *Manager) auditEvent(ctx context.Context, eventType string, success bool, err error, meta map[string]string) {
	if m.audit == nil {
		return
	}
	ev := AuditEvent{
		EventType: eventType,
		Success:   success,
		Metadata:  meta,
	}
	m.mu.Lock()
	if m.sess.User != nil {
		ev.UserID = m.sess.User.ID.String()
	}
	m.mu.Unlock()
	if err != nil {
		ev.Error = err.Error()
	}
	m.audit.Emit(ctx, ev)
}
