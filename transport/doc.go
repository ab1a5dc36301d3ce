// Package transport carries the current bearer credential onto outbound requests.
//
// # Architecture boundaries
//
// [Bearer] is the only holder of the credential used by the collaborator HTTP
// client. The session manager updates it synchronously on every session change,
// before issuing any request that depends on the new credential.
//
// # What this package must NOT do
//
//   - Decide whether a token is valid.
//   - Retry or rewrite requests beyond adding the Authorization header.
package transport
