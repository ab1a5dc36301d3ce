package flows

// Deps groups flow dependency sets. The root Manager builds this once and
// delegates to the matching flow implementation.
type Deps struct {
	Verify     VerifyDeps
	Initialize InitDeps
	Login      LoginDeps
	Refresh    RefreshDeps
	Logout     LogoutDeps
}
