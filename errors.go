package goSession

import "errors"

var (
	// ErrInvalidLoginData is returned by Login when the response lacks a token or user.
	ErrInvalidLoginData = errors.New("invalid login data")
	// ErrLoginVerificationFailed is returned by Login when the server refuses to
	// verify the freshly issued token. All partial state has been rolled back.
	ErrLoginVerificationFailed = errors.New("login verification failed")
	// ErrInvalidCredentials is returned by LoginWithCredentials on a rejected login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginUnavailable is returned by LoginWithCredentials when the API cannot be reached.
	ErrLoginUnavailable = errors.New("login service unavailable")
	// ErrNoRefreshToken is returned by RefreshToken without any network call.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshFailed wraps the API failure of a refresh attempt.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrSessionChanged is returned by RefreshToken when the session was replaced
	// or cleared while the refresh was in flight; the result is discarded.
	ErrSessionChanged = errors.New("session changed during refresh")
	// ErrSyncUnsupported is returned by StartSync when the durable store cannot
	// report changes made by other instances.
	ErrSyncUnsupported = errors.New("durable store does not support change notification")
	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("session manager closed")
)
