// Package session provides the records the client persists about its login: the
// durable session record, the verification snapshot, and the cached property list.
//
// # Encoding
//
// Records are stored as JSON text so any storage backend (browser-like key/value,
// Redis, files) can hold them. The durable session record carries a schema version
// ("v"); records written before versioning are migrated forward on read.
//
// # Architecture boundaries
//
// This package owns the [Session], [User], [Property] models and their codecs. It does
// NOT perform I/O, talk to the REST API, or decide session state transitions. Those
// responsibilities belong to the Manager.
//
// # What this package must NOT do
//
//   - Import goSession, storage, or api (no upward imports).
//   - Treat a record without a token or user as usable.
package session
