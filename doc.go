// Package goSession is the client-side session manager of the property-maintenance
// admin front-end. It owns the bearer token lifecycle against the collaborator REST
// API: verification caching, silent refresh, cross-instance consistency and the
// dependent property-list cache.
//
// A [Manager] is built once through [Builder.Build] and passed to its consumers.
// Its methods are safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config] and
// value types (State, Event, MetricsSnapshot). Decision logic lives in
// internal/flows; persistence lives behind storage.Store; HTTP lives in api and
// transport.
//
// # What this package must NOT do
//
//   - Hold its state mutex across a network call.
//   - Surface storage failures from its public API. A store that cannot be read
//     is treated as empty.
//   - Return errors from Initialize, Logout or the background refresher. Login,
//     LoginWithCredentials and RefreshToken are the only operations that fail.
package goSession
