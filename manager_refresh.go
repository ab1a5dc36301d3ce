package goSession

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/internal/flows"
)

// RefreshToken exchanges the refresh token for a new access token and user.
//
// Without a refresh token it returns ErrNoRefreshToken and makes no network call.
// On success the session is replaced in memory and in the durable store, the
// transport carries the new token and, when the API issued one, the new refresh
// token. The property cache is left alone. Failures wrap ErrRefreshFailed; the
// caller decides whether to log out.
func (m *Manager) RefreshToken(ctx context.Context) error {
	if m.isClosed() {
		return ErrClosed
	}

	m.mu.Lock()
	current := m.sess.Clone()
	epoch := m.epoch
	m.mu.Unlock()

	if current.RefreshToken == "" {
		stored, ok, err := m.records.LoadSession(ctx)
		if err == nil && ok {
			current = stored
		}
	}

	res := m.flows.Refresh(ctx, current)
	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureNoToken:
		return ErrNoRefreshToken
	default:
		m.metrics.Inc(MetricRefreshFailure)
		m.auditEvent(ctx, auditEventRefreshFailure, false, res.Err, map[string]string{"reason": res.Failure.String()})
		return fmt.Errorf("%w: %w", ErrRefreshFailed, res.Err)
	}

	m.mu.Lock()
	if m.epoch != epoch || m.closed {
		m.mu.Unlock()
		return ErrSessionChanged
	}
	m.setSessionLocked(res.Session)
	m.state = StateAuthenticated
	committed := m.sess.Clone()
	m.mu.Unlock()

	if err := m.records.SaveSession(ctx, committed); err != nil {
		m.log.Warnf("goSession: refreshed session not persisted: %v", err)
	}

	meta := map[string]string{}
	if res.Rotated {
		meta["rotated"] = "true"
	}
	m.metrics.Inc(MetricRefreshSuccess)
	m.auditEvent(ctx, auditEventRefreshSuccess, true, nil, meta)
	m.ensureRefresher()
	m.emit(m.event(EventRefreshed))
	return nil
}

func (m *Manager) refreshCall(ctx context.Context, refreshToken string) (api.RefreshResponse, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.client.Refresh(ctx, refreshToken)
}

/*
====================================
BACKGROUND REFRESH
====================================
*/

// ensureRefresher starts the background refresher unless it is running, disabled
// or the Manager is not authenticated.
func (m *Manager) ensureRefresher() {
	if !m.cfg.Refresh.Enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.refreshCancel != nil || m.state != StateAuthenticated {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.refreshCancel = cancel
	m.bg.Add(1)
	go m.runRefresher(ctx)
}

func (m *Manager) stopRefresher() {
	m.mu.Lock()
	cancel := m.refreshCancel
	m.refreshCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) runRefresher(ctx context.Context) {
	defer m.bg.Done()

	for {
		timer := time.NewTimer(m.nextRefreshDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := m.RefreshToken(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Warnf("goSession: background refresh failed: %v", err)
		}
	}
}

// nextRefreshDelay is Refresh.Interval, shortened so a refresh lands
// Refresh.ExpiryLeeway before a known token expiry, but never below
// Refresh.MinInterval.
func (m *Manager) nextRefreshDelay() time.Duration {
	m.mu.Lock()
	exp := m.sess.ExpiresAt
	m.mu.Unlock()

	delay := m.cfg.Refresh.Interval
	if !exp.IsZero() {
		if untilExpiry := exp.Sub(m.now()) - m.cfg.Refresh.ExpiryLeeway; untilExpiry < delay {
			delay = untilExpiry
		}
	}
	if delay < m.cfg.Refresh.MinInterval {
		delay = m.cfg.Refresh.MinInterval
	}
	return delay
}
