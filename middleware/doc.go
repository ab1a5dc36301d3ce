// Package middleware exposes HTTP guards built on a goSession.Manager.
//
// # Guards
//
//   - [RequireSession] redirects unauthenticated requests to the login path.
//   - [RequireRole] additionally restricts the request to a set of user roles.
//
// Both read the Manager's in-memory state only. They never verify tokens or touch
// storage, so a guarded request costs one mutex acquisition. The session snapshot
// is available to handlers through [SessionFromContext].
package middleware
