package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

const (
	// DefaultTimeout bounds every round trip.
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 1 << 20
	// Property lists grow with the portfolio.
	maxPropertiesBytes = 16 << 20
)

// Endpoint paths.
const (
	PathLogin       = "/auth/login"
	PathRefresh     = "/refresh"
	PathVerifyToken = "/verify-token"
	PathLogout      = "/logout"
	PathProperties  = "/properties"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	User         *session.User `json:"user"`
}

// RefreshResponse is the body of a successful refresh. RefreshToken is set only
// when the server rotates it.
type RefreshResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	User         *session.User `json:"user"`
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	// Timeout bounds each call. Default DefaultTimeout.
	Timeout time.Duration
	// RateLimit and Burst shape outbound calls. RateLimit <= 0 disables limiting.
	RateLimit rate.Limit
	Burst     int
	// Base is the transport beneath the bearer round tripper.
	Base http.RoundTripper
	// Bearer supplies the credential for calls that do not name one explicitly.
	// A new Bearer is created when nil.
	Bearer *transport.Bearer
	// Jar receives cookies set by the API.
	Jar http.CookieJar
}

// Client calls the collaborator API.
type Client struct {
	base    *url.URL
	http    *http.Client
	bearer  *transport.Bearer
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("api base url: missing host")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	bearer := opts.Bearer
	if bearer == nil {
		bearer = transport.NewBearer(opts.Base)
	} else if opts.Base != nil && bearer.Base == nil {
		bearer.Base = opts.Base
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	return &Client{
		base:    u,
		http:    &http.Client{Transport: bearer, Jar: opts.Jar},
		bearer:  bearer,
		limiter: limiter,
		timeout: timeout,
	}, nil
}

// Bearer returns the token transport used by the client.
func (c *Client) Bearer() *transport.Bearer { return c.bearer }

// BaseURL returns the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, creds, "", &out); err != nil {
		return LoginResponse{}, err
	}
	if out.Token == "" || out.User == nil {
		return LoginResponse{}, fmt.Errorf("%w: login response lacks token or user", ErrMalformed)
	}
	return out, nil
}

// Refresh exchanges refreshToken for a new token and user.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (RefreshResponse, error) {
	var out RefreshResponse
	if err := c.do(ctx, http.MethodPost, PathRefresh, nil, refreshToken, &out); err != nil {
		return RefreshResponse{}, err
	}
	if out.Token == "" || out.User == nil {
		return RefreshResponse{}, fmt.Errorf("%w: refresh response lacks token or user", ErrMalformed)
	}
	return out, nil
}

// VerifyToken asks the server whether token is valid and returns its user.
func (c *Client) VerifyToken(ctx context.Context, token string) (*session.User, error) {
	var out struct {
		User *session.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, PathVerifyToken, nil, token, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("%w: verify response lacks user", ErrMalformed)
	}
	return out.User, nil
}

// Logout notifies the server. Callers treat it as best-effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, PathLogout, nil, "", nil)
}

// Properties fetches the caller-visible property list. The server may answer
// with a bare array or wrap it as {"properties": [...]} or {"data": [...]}.
func (c *Client) Properties(ctx context.Context) ([]session.Property, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, PathProperties, nil, "", &raw); err != nil {
		return nil, err
	}
	props, err := decodePropertyList(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return props, nil
}

func decodePropertyList(raw json.RawMessage) ([]session.Property, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	if raw[0] == '[' {
		var list []session.Property
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return session.CloneProperties(list), nil
	}

	var env struct {
		Properties *[]session.Property `json:"properties"`
		Data       *[]session.Property `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch {
	case env.Properties != nil:
		return session.CloneProperties(*env.Properties), nil
	case env.Data != nil:
		return session.CloneProperties(*env.Data), nil
	}
	return nil, errors.New("no property list in response")
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrConnectivity, method, path, err)
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req = transport.WithToken(req, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrConnectivity, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil
	}

	limit := bodyLimit(path)
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrConnectivity, method, path, err)
	}
	if int64(len(data)) > limit {
		return fmt.Errorf("%w: %s %s: more than %d bytes", ErrTooLarge, method, path, limit)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformed, method, path, err)
	}
	return nil
}

func bodyLimit(path string) int64 {
	if path == PathProperties {
		return maxPropertiesBytes
	}
	return maxBodyBytes
}
