// Package flows contains pure-function orchestrators for every session Manager
// operation.
//
// Each flow function (RunVerify, RunInitialize, RunLogin, RunRefresh, etc.)
// accepts a typed dependency struct and returns results without side-effects
// beyond those dependencies. This keeps the Manager thin: it owns state and
// locking, the flows own the decisions.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the persisted stores (via [Records]), the
// API client, and the token transport. They do NOT own any of these resources;
// ownership stays with the Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Hold any lock, or touch Manager state except through dependency closures.
package flows
