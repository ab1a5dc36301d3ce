package goSession

import (
	"context"
	"strconv"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
)

// GetProperties returns the property list of the authenticated user. Unless force
// is set, a list fetched within Properties.TTL is served from memory or the
// ephemeral store. A failed fetch returns the last list held in memory, which may
// be stale or empty; GetProperties never fails and never returns nil.
func (m *Manager) GetProperties(ctx context.Context, force bool) []session.Property {
	m.mu.Lock()
	gen := m.propsGen
	epoch := m.epoch
	var owner session.ID
	authenticated := m.state == StateAuthenticated && m.sess.Valid()
	if authenticated {
		owner = m.sess.User.ID
	}
	mem := m.props
	m.mu.Unlock()

	res := m.flows.Properties(ctx, force, flows.PropertiesDeps{
		Now:           m.now(),
		TTL:           m.cfg.Properties.TTL,
		Owner:         func() (session.ID, bool) { return owner, authenticated },
		Memory:        func() *session.PropertyEntry { return mem },
		LoadEphemeral: m.records.LoadProperties,
		Fetch:         m.propertiesCall,
		Store: func(ctx context.Context, e session.PropertyEntry) {
			m.storeProperties(ctx, gen, e)
		},
		Warn: m.log.Warnf,
	})

	switch res.Source {
	case flows.PropertiesMemory, flows.PropertiesEphemeral:
		m.metrics.Inc(MetricPropertiesHit)
	case flows.PropertiesNetwork:
		m.metrics.Inc(MetricPropertiesFetch)
		m.auditEvent(ctx, auditEventPropertiesFetch, true, nil, map[string]string{"count": strconv.Itoa(len(res.Properties))})
	case flows.PropertiesStale:
		m.metrics.Inc(MetricPropertiesStale)
		m.auditEvent(ctx, auditEventPropertiesFetch, false, res.Err, nil)
	}

	if res.Entry == nil {
		return res.Properties
	}

	m.mu.Lock()
	adopted := m.propsGen == gen && m.epoch == epoch
	if adopted {
		m.props = res.Entry
	}
	m.mu.Unlock()

	if adopted && res.Source == flows.PropertiesNetwork {
		ev := m.event(EventPropertiesChanged)
		ev.Properties = session.CloneProperties(res.Properties)
		m.emit(ev)
	}
	return res.Properties
}

// InvalidateProperties drops the cached property list everywhere this instance
// keeps it. In-flight fetches started before the call are not cached.
func (m *Manager) InvalidateProperties(ctx context.Context) {
	m.mu.Lock()
	had := m.props != nil
	m.mu.Unlock()

	m.clearProperties(ctx)

	if had {
		m.emit(m.event(EventPropertiesChanged))
	}
}

func (m *Manager) clearProperties(ctx context.Context) {
	m.mu.Lock()
	m.props = nil
	m.propsGen++
	m.mu.Unlock()

	if err := m.records.ClearProperties(ctx); err != nil {
		m.log.Warnf("goSession: clearing cached properties: %v", err)
	}
	if m.cfg.Properties.ShareAcrossInstances {
		if err := m.records.ClearSharedProperties(ctx); err != nil {
			m.log.Warnf("goSession: clearing shared properties: %v", err)
		}
	}
}

// storeProperties persists a fetched entry unless the cache was invalidated since
// the fetch began.
func (m *Manager) storeProperties(ctx context.Context, gen uint64, e session.PropertyEntry) {
	m.mu.Lock()
	current := m.propsGen == gen
	m.mu.Unlock()
	if !current {
		return
	}

	if err := m.records.SaveProperties(ctx, e); err != nil {
		m.log.Warnf("goSession: properties not cached: %v", err)
		m.metrics.Inc(MetricStorageError)
	}
	if m.cfg.Properties.ShareAcrossInstances {
		if err := m.records.SaveSharedProperties(ctx, e); err != nil {
			m.log.Warnf("goSession: properties not shared: %v", err)
			m.metrics.Inc(MetricStorageError)
		}
	}
}

func (m *Manager) propertiesCall(ctx context.Context) ([]session.Property, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.client.Properties(ctx)
}
