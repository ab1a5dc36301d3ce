package flows

import (
	"context"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// Service is the centralized flow runner built once by the root Manager.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

func (s Service) Verify(ctx context.Context, token string) VerifyResult {
	return RunVerify(ctx, token, s.deps.Verify)
}

func (s Service) Initialize(ctx context.Context) InitResult {
	return RunInitialize(ctx, s.deps.Initialize)
}

func (s Service) Login(ctx context.Context, resp api.LoginResponse) LoginResult {
	return RunLogin(ctx, resp, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, current session.Session) RefreshResult {
	return RunRefresh(ctx, current, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, local bool) LogoutResult {
	return RunLogout(ctx, local, s.deps.Logout)
}

// Properties runs the property cache read with per-call deps; the clock and the
// in-memory entry are sampled by the caller.
func (s Service) Properties(ctx context.Context, force bool, deps PropertiesDeps) PropertiesResult {
	return RunGetProperties(ctx, force, deps)
}

func (s Service) DecideSync(c storage.Change) SyncDecision {
	return DecideSync(c)
}
