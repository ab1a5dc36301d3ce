package goSession

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/internal/flows"
)

// Login establishes a session from a login response issued by the API.
//
// The new token is installed on the transport and verified before the session is
// persisted. A verification failure other than unreachability rolls back the
// transport and the stored session and returns ErrLoginVerificationFailed. On
// success the property cache is invalidated and the background refresher runs.
func (m *Manager) Login(ctx context.Context, resp api.LoginResponse) error {
	if m.isClosed() {
		return ErrClosed
	}

	res := m.flows.Login(ctx, resp)
	switch res.Failure {
	case flows.LoginFailureInvalidData:
		m.metrics.Inc(MetricLoginFailure)
		m.auditEvent(ctx, auditEventLoginFailure, false, res.Err, map[string]string{"reason": "invalid_data"})
		return ErrInvalidLoginData

	case flows.LoginFailureVerification:
		m.metrics.Inc(MetricLoginFailure)
		m.auditEvent(ctx, auditEventLoginFailure, false, res.Err, map[string]string{"reason": "verification"})

		m.mu.Lock()
		wasAuthenticated := m.state == StateAuthenticated
		m.clearSessionLocked()
		if m.state != StateInitializing {
			m.state = StateUnauthenticated
		}
		m.mu.Unlock()
		if wasAuthenticated {
			m.stopRefresher()
			ev := m.event(EventUnauthenticated)
			ev.RedirectToLogin = true
			m.emit(ev)
		}
		return fmt.Errorf("%w: %v", ErrLoginVerificationFailed, res.Err)
	}

	m.mu.Lock()
	m.setSessionLocked(res.Session)
	m.state = StateAuthenticated
	m.mu.Unlock()

	if res.Verify.FromCache || res.Verify.Failure == flows.VerifyFailureConnectivity {
		m.log.Infof("goSession: login accepted without server confirmation: %v", res.Verify.Err)
	}
	m.metrics.Inc(MetricLoginSuccess)
	m.auditEvent(ctx, auditEventLoginSuccess, true, nil, nil)
	m.ensureRefresher()
	m.emit(m.event(EventAuthenticated))
	return nil
}

// LoginWithCredentials posts creds to the login endpoint and then calls Login with
// the response. A rejected login returns ErrInvalidCredentials; an unreachable API
// returns ErrLoginUnavailable.
func (m *Manager) LoginWithCredentials(ctx context.Context, creds api.Credentials) error {
	if m.isClosed() {
		return ErrClosed
	}

	callCtx, cancel := m.callContext(ctx)
	resp, err := m.client.Login(callCtx, creds)
	cancel()
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.auditEvent(ctx, auditEventLoginFailure, false, err, map[string]string{"reason": "credentials"})
		switch {
		case api.IsConnectivity(err):
			return fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
		case errors.Is(err, api.ErrMalformed):
			return ErrInvalidLoginData
		default:
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
	}
	return m.Login(ctx, resp)
}
