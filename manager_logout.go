package goSession

import (
	"context"
	"net/http"
)

// Logout ends the session. The API is told on a best-effort basis; local state is
// cleared regardless: the stored session, the verification record, the
// initialization marker, the property cache, auth cookies and the transport.
// Subscribers then receive EventLoggedOut with RedirectToLogin set and the
// Reloader runs. Logout is idempotent.
func (m *Manager) Logout(ctx context.Context) {
	m.logout(ctx, false)
	m.metrics.Inc(MetricLogout)
}

// logout with local set skips the API call; it is used when another instance has
// already logged out.
func (m *Manager) logout(ctx context.Context, local bool) {
	m.stopRefresher()

	m.mu.Lock()
	var userID string
	if m.sess.User != nil {
		userID = m.sess.User.ID.String()
	}
	m.mu.Unlock()

	res := m.flows.Logout(ctx, local)
	if res.ServerErr != nil {
		m.metrics.Inc(MetricLogoutServerFailure)
	}

	if m.audit != nil {
		ev := AuditEvent{EventType: auditEventLogout, UserID: userID, Success: true}
		if local {
			ev.EventType = auditEventSyncLogout
		}
		if res.ServerErr != nil {
			ev.Error = res.ServerErr.Error()
		}
		m.audit.Emit(ctx, ev)
	}

	ev := m.event(EventLoggedOut)
	ev.RedirectToLogin = true
	m.emit(ev)

	if m.reloader != nil {
		m.reloader.Reload(ctx)
	}
}

func (m *Manager) logoutCall(ctx context.Context) error {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.client.Logout(ctx)
}

// clearCookies expires the configured auth cookies for the API origin.
func (m *Manager) clearCookies() {
	if m.jar == nil || m.cookieURL == nil || len(m.cfg.Session.AuthCookieNames) == 0 {
		return
	}
	cookies := make([]*http.Cookie, 0, len(m.cfg.Session.AuthCookieNames))
	for _, name := range m.cfg.Session.AuthCookieNames {
		cookies = append(cookies, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	m.jar.SetCookies(m.cookieURL, cookies)
}
