package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConnectivity reports a timeout, an unreachable server or a gateway failure.
	ErrConnectivity = errors.New("api unreachable")
	// ErrRejected reports that the server explicitly refused the request.
	ErrRejected = errors.New("api rejected request")
	// ErrMalformed reports a success status with a body that lacks required fields.
	ErrMalformed = errors.New("api response malformed")
	// ErrTooLarge reports a success body over the size limit. It matches ErrMalformed.
	ErrTooLarge = fmt.Errorf("%w: body too large", ErrMalformed)
)

// StatusError is returned for non-2xx responses. It unwraps to ErrConnectivity
// for transient statuses and to ErrRejected otherwise.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

func (e *StatusError) Unwrap() error {
	if transientStatus(e.Code) {
		return ErrConnectivity
	}
	return ErrRejected
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsConnectivity reports whether err is a connectivity failure.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// IsRejected reports whether err is an authoritative rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
