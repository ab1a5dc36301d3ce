package storage

import (
	"context"
	"errors"
)

// ErrUnavailable wraps backend failures (I/O errors, connection loss, quota).
var ErrUnavailable = errors.New("storage unavailable")

// Durable keys.
const (
	KeySession          = "auth_session"
	KeySharedProperties = "properties_cache"
)

// Ephemeral keys.
const (
	KeyLastVerified      = "auth_last_verified"
	KeyLastVerifiedToken = "auth_last_verified_token"
	KeyLastVerifiedUser  = "auth_last_verified_user"
	KeyProperties        = "properties_cache"
	KeyPropertiesTime    = "properties_cache_time"
	KeyLastInit          = "auth_last_init"
)

// Store is a string key/value store. A missing key is reported with ok=false and a
// nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Change describes a mutation made by another instance.
type Change struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Removed bool   `json:"removed,omitempty"`
	Origin  string `json:"origin,omitempty"`
}

// Watcher delivers changes made by other instances. Watch registers fn before it
// returns, so no change made after Watch returns is missed. fn runs on a single
// goroutine owned by the watcher. stop (or cancelling ctx) ends delivery; stop
// returns after fn has returned for the last time, so it must not be called from fn.
type Watcher interface {
	Watch(ctx context.Context, fn func(Change)) (stop func(), err error)
}
