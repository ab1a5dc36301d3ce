package middleware

import (
	"context"
	"net/http"
	"net/url"
	"slices"

	"github.com/MrEthical07/goSession/session"
)

// SessionSource is the part of goSession.Manager the guards need.
type SessionSource interface {
	Authenticated() bool
	Snapshot() session.Session
}

type sessionContextKey struct{}

// SessionFromContext returns the session snapshot stored by a guard.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(session.Session)
	return s, ok
}

// RequireSession redirects to loginPath while src is unauthenticated. The
// original request URI is carried in the "next" query parameter. Authenticated
// requests reach next with the session snapshot in their context.
func RequireSession(src SessionSource, loginPath string) func(http.Handler) http.Handler {
	return guard(src, loginPath, nil)
}

// RequireRole behaves like RequireSession and additionally answers 403 when the
// user's role is not one of roles.
func RequireRole(src SessionSource, loginPath string, roles ...string) func(http.Handler) http.Handler {
	return guard(src, loginPath, func(s session.Session) bool {
		return s.User != nil && slices.Contains(roles, s.User.Role)
	})
}

func guard(src SessionSource, loginPath string, allow func(session.Session) bool) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil || !src.Authenticated() {
				redirectToLogin(w, r, loginPath)
				return
			}

			snap := src.Snapshot()
			// The session may have ended between the two calls.
			if !snap.Valid() {
				redirectToLogin(w, r, loginPath)
				return
			}
			if allow != nil && !allow(snap) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	target := loginPath
	if r.URL.Path != loginPath {
		target += "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
