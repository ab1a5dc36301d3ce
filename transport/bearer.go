package transport

import (
	"net/http"
	"sync"
)

// Bearer is an [http.RoundTripper] that adds "Authorization: Bearer <token>" to
// requests that carry no Authorization header of their own. It is safe for
// concurrent use.
type Bearer struct {
	// Base is the underlying transport; nil means http.DefaultTransport.
	Base http.RoundTripper

	mu    sync.RWMutex
	token string
}

// NewBearer returns a Bearer wrapping base.
func NewBearer(base http.RoundTripper) *Bearer {
	return &Bearer{Base: base}
}

// SetToken replaces the credential. An empty token clears it.
func (b *Bearer) SetToken(token string) {
	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
}

// Token returns the current credential.
func (b *Bearer) Token() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

// RoundTrip implements http.RoundTripper. The request is cloned before the header
// is added, as the RoundTripper contract requires.
func (b *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	base := b.Base
	if base == nil {
		base = http.DefaultTransport
	}

	token := b.Token()
	if token == "" || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(out)
}

// WithToken returns a copy of req that authenticates with token regardless of
// the credential currently held by any Bearer. Used for refresh and explicit
// verification calls.
func WithToken(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}
