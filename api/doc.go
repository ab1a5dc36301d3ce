// Package api is the HTTP client for the collaborator REST API consumed by the
// session manager: login, refresh, verify-token, logout and properties.
//
// # Architecture boundaries
//
// Every call carries an explicit timeout and passes through a client-side rate
// limiter. Failures are classified into three kinds that the session manager
// acts on: [ErrConnectivity] (degrade, keep state, retry later), [ErrRejected]
// (authoritative) and [ErrMalformed] (treated as a rejection).
//
// # What this package must NOT do
//
//   - Keep session state. The current bearer credential lives in
//     transport.Bearer and is owned by the session manager.
//   - Retry. Callers decide whether and when to try again.
package api
