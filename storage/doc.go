// Package storage provides the key/value stores the session client persists to.
//
// # Scopes
//
// Two scopes exist. The durable scope survives a restart and is shared by every
// instance (tab, process) of the client; the ephemeral scope belongs to one instance
// and disappears with it. Both satisfy [Store]. Durable backends additionally
// implement [Watcher] so an instance can observe mutations made by the others.
//
// # Backends
//
//   - [MemoryStore]: ephemeral scope.
//   - [Hub] / [HubStore]: durable scope shared by instances inside one process.
//   - [RedisStore]: durable scope in Redis; changes fan out over pub/sub.
//   - [FileStore]: durable scope in a directory; changes observed with fsnotify.
//
// # What this package must NOT do
//
//   - Interpret stored values (callers own encoding).
//   - Deliver an instance's own writes back to it through [Watcher].
package storage
