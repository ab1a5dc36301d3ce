// Package apitest provides an in-process fake of the collaborator REST API with
// per-endpoint call counters and failure switches.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
)

// Fault selects how an endpoint misbehaves.
type Fault int

const (
	FaultNone Fault = iota
	// FaultReject answers 401.
	FaultReject
	// FaultHang blocks until the client gives up.
	FaultHang
	// FaultMalformed answers 200 with an empty object.
	FaultMalformed
	// FaultUnavailable answers 503.
	FaultUnavailable
)

// Envelope selects how /properties wraps its list.
type Envelope string

const (
	EnvelopeNone       Envelope = ""
	EnvelopeProperties Envelope = "properties"
	EnvelopeData       Envelope = "data"
)

type account struct {
	password string
	user     session.User
}

// API is the fake collaborator. The zero value is not usable; call New.
type API struct {
	secret   []byte
	tokenTTL time.Duration

	mu            sync.Mutex
	accounts      map[string]account
	tokens        map[string]session.User
	refresh       map[string]session.User
	properties    map[session.ID][]session.Property
	faults        map[string]Fault
	calls         map[string]int
	lastAuth      map[string]string
	rotateRefresh bool
	envelope      Envelope

	release chan struct{}
	once    sync.Once
	engine  *gin.Engine
}

// Option configures an API.
type Option func(*API)

// WithTokenTTL sets the lifetime encoded in issued access tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(a *API) { a.tokenTTL = d }
}

// WithRefreshRotation makes /refresh return a new refresh token each time.
func WithRefreshRotation() Option {
	return func(a *API) { a.rotateRefresh = true }
}

// WithEnvelope selects the /properties response shape.
func WithEnvelope(e Envelope) Option {
	return func(a *API) { a.envelope = e }
}

// New returns a fake API handler.
func New(opts ...Option) *API {
	a := &API{
		secret:     []byte(uuid.NewString()),
		tokenTTL:   time.Hour,
		accounts:   make(map[string]account),
		tokens:     make(map[string]session.User),
		refresh:    make(map[string]session.User),
		properties: make(map[session.ID][]session.Property),
		faults:     make(map[string]Fault),
		calls:      make(map[string]int),
		lastAuth:   make(map[string]string),
		release:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	r := gin.New()
	r.Use(a.count, a.fault)
	r.POST(api.PathLogin, a.login)
	r.POST(api.PathRefresh, a.refreshToken)
	r.GET(api.PathVerifyToken, a.verify)
	r.POST(api.PathLogout, a.logout)
	r.GET(api.PathProperties, a.listProperties)
	a.engine = r
	return a
}

// Handler returns the HTTP handler serving the fake API.
func (a *API) Handler() http.Handler { return a.engine }

// Release unblocks every request parked by FaultHang.
func (a *API) Release() {
	a.once.Do(func() { close(a.release) })
}

// Server is an API listening on a loopback address.
type Server struct {
	*API
	URL string

	srv *httptest.Server
}

// NewServer starts an API on httptest. It is closed by t-style cleanup via Close.
func NewServer(opts ...Option) *Server {
	gin.SetMode(gin.TestMode)
	a := New(opts...)
	srv := httptest.NewServer(a.Handler())
	return &Server{API: a, URL: srv.URL, srv: srv}
}

// Close releases hung requests and stops the server.
func (s *Server) Close() {
	s.Release()
	s.srv.Close()
}

// AddUser registers credentials for user.
func (a *API) AddUser(username, password string, user session.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[username] = account{password: password, user: user}
}

// Issue mints a token pair for user as if it had logged in.
func (a *API) Issue(user session.User) (token, refreshToken string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issueLocked(user)
}

func (a *API) issueLocked(user session.User) (string, string) {
	token := a.mintAccess(user)
	refreshToken := uuid.NewString()
	a.tokens[token] = user
	a.refresh[refreshToken] = user
	return token, refreshToken
}

// Accept registers an externally chosen token (e.g. "abc") as valid for user.
func (a *API) Accept(token string, user session.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[token] = user
}

// AcceptRefresh registers an externally chosen refresh token for user.
func (a *API) AcceptRefresh(refreshToken string, user session.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refresh[refreshToken] = user
}

// Revoke makes token invalid.
func (a *API) Revoke(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tokens, token)
	delete(a.refresh, token)
}

// SetProperties sets the list returned to user.
func (a *API) SetProperties(user session.ID, props []session.Property) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.properties[user] = session.CloneProperties(props)
}

// SetFault makes path misbehave until cleared with FaultNone.
func (a *API) SetFault(path string, f Fault) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if f == FaultNone {
		delete(a.faults, path)
		return
	}
	a.faults[path] = f
}

// Calls returns how many requests reached path.
func (a *API) Calls(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[path]
}

// TotalCalls returns the number of requests across all endpoints.
func (a *API) TotalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		n += c
	}
	return n
}

// LastAuthorization returns the Authorization header of the last request to path.
func (a *API) LastAuthorization(path string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAuth[path]
}

func (a *API) mintAccess(user session.User) string {
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		// HS256 signing with a byte key does not fail.
		panic(err)
	}
	return signed
}

func (a *API) count(c *gin.Context) {
	a.mu.Lock()
	a.calls[c.FullPath()]++
	a.lastAuth[c.FullPath()] = c.GetHeader("Authorization")
	a.mu.Unlock()
	c.Next()
}

func (a *API) fault(c *gin.Context) {
	a.mu.Lock()
	f := a.faults[c.FullPath()]
	a.mu.Unlock()

	switch f {
	case FaultReject:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "rejected"})
	case FaultHang:
		select {
		case <-c.Request.Context().Done():
		case <-a.release:
		}
		c.AbortWithStatus(http.StatusGatewayTimeout)
	case FaultMalformed:
		c.AbortWithStatusJSON(http.StatusOK, gin.H{})
	case FaultUnavailable:
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
	default:
		c.Next()
	}
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func (a *API) login(c *gin.Context) {
	var creds api.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := creds.Username
	if name == "" {
		name = creds.Email
	}

	a.mu.Lock()
	acct, ok := a.accounts[name]
	if !ok || acct.password != creds.Password {
		a.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, refreshToken := a.issueLocked(acct.user)
	a.mu.Unlock()

	user := acct.user
	c.JSON(http.StatusOK, api.LoginResponse{Token: token, RefreshToken: refreshToken, User: &user})
}

func (a *API) refreshToken(c *gin.Context) {
	presented := bearer(c)

	a.mu.Lock()
	user, ok := a.refresh[presented]
	if !ok {
		a.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	token := a.mintAccess(user)
	a.tokens[token] = user
	out := api.RefreshResponse{Token: token, User: &user}
	if a.rotateRefresh {
		delete(a.refresh, presented)
		out.RefreshToken = uuid.NewString()
		a.refresh[out.RefreshToken] = user
	}
	a.mu.Unlock()

	c.JSON(http.StatusOK, out)
}

func (a *API) authorized(c *gin.Context) (session.User, bool) {
	a.mu.Lock()
	user, ok := a.tokens[bearer(c)]
	a.mu.Unlock()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
	return user, ok
}

func (a *API) verify(c *gin.Context) {
	user, ok := a.authorized(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (a *API) logout(c *gin.Context) {
	a.mu.Lock()
	delete(a.tokens, bearer(c))
	a.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{})
}

func (a *API) listProperties(c *gin.Context) {
	user, ok := a.authorized(c)
	if !ok {
		return
	}
	a.mu.Lock()
	props := session.CloneProperties(a.properties[user.ID])
	env := a.envelope
	a.mu.Unlock()

	if env == EnvelopeNone {
		c.JSON(http.StatusOK, props)
		return
	}
	c.JSON(http.StatusOK, gin.H{string(env): props})
}
