package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// StartSync watches the durable store for changes made by other instances. A
// session written elsewhere is adopted without re-verification; a removed or
// unusable session logs this instance out locally. Property lists shared by
// other instances are adopted or cleared.
//
// Build calls StartSync when the durable store implements storage.Watcher and
// Config.Sync.Disabled is false. Calling it again is a no-op.
func (m *Manager) StartSync(ctx context.Context) error {
	w, ok := m.durable.(storage.Watcher)
	if !ok {
		return ErrSyncUnsupported
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.syncStop != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	stop, err := w.Watch(ctx, func(c storage.Change) {
		m.handleChange(context.Background(), c)
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed || m.syncStop != nil {
		m.mu.Unlock()
		stop()
		return nil
	}
	m.syncStop = stop
	m.mu.Unlock()
	return nil
}

func (m *Manager) handleChange(ctx context.Context, c storage.Change) {
	d := m.flows.DecideSync(c)
	if d.Err != nil {
		m.log.Warnf("goSession: ignoring unreadable %s from another instance: %v", c.Key, d.Err)
	}

	switch d.Action {
	case flows.SyncAdoptSession:
		m.adoptSession(ctx, d.Session)

	case flows.SyncForceLogout:
		if d.Invalid {
			if err := m.records.ClearSession(ctx); err != nil {
				m.log.Warnf("goSession: clearing invalid shared session: %v", err)
			}
		}
		m.mu.Lock()
		st := m.state
		if st == StateInitializing {
			m.epoch++
		}
		m.mu.Unlock()
		if st != StateAuthenticated {
			return
		}
		m.metrics.Inc(MetricSyncLogout)
		m.logout(ctx, true)

	case flows.SyncAdoptProperties:
		m.adoptProperties(ctx, d.Properties)

	case flows.SyncClearProperties:
		m.mu.Lock()
		had := m.props != nil
		m.props = nil
		m.propsGen++
		m.mu.Unlock()
		if err := m.records.ClearProperties(ctx); err != nil {
			m.log.Warnf("goSession: clearing cached properties: %v", err)
		}
		if had {
			m.metrics.Inc(MetricSyncProperties)
			m.emit(m.event(EventPropertiesChanged))
		}
	}
}

func (m *Manager) adoptSession(ctx context.Context, s session.Session) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.state == StateAuthenticated && sameSession(m.sess, s) {
		m.mu.Unlock()
		return
	}
	m.setSessionLocked(s)
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.metrics.Inc(MetricSyncAdopt)
	m.auditEvent(ctx, auditEventSyncAdopt, true, nil, nil)
	m.ensureRefresher()
	m.emit(m.event(EventAdopted))
}

func (m *Manager) adoptProperties(ctx context.Context, e session.PropertyEntry) {
	m.mu.Lock()
	owned := m.state == StateAuthenticated && m.sess.User != nil && m.sess.User.ID == e.Owner
	if owned {
		entry := e
		entry.Properties = session.CloneProperties(e.Properties)
		m.props = &entry
	}
	m.mu.Unlock()
	if !owned {
		return
	}

	if err := m.records.SaveProperties(ctx, e); err != nil {
		m.log.Warnf("goSession: adopted properties not cached: %v", err)
	}
	m.metrics.Inc(MetricSyncProperties)
	ev := m.event(EventPropertiesChanged)
	ev.Properties = session.CloneProperties(e.Properties)
	m.emit(ev)
}

func sameSession(a, b session.Session) bool {
	if a.Token != b.Token || a.RefreshToken != b.RefreshToken {
		return false
	}
	if a.User == nil || b.User == nil {
		return a.User == b.User
	}
	return a.User.ID == b.User.ID && a.User.Role == b.User.Role
}
