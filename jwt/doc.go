// Package jwt reads claims from access tokens without verifying them.
//
// Tokens are issued and verified by the collaborator API; the client treats them
// as opaque. When a token happens to be a JWT, its registered claims are a useful
// hint (for example, when to refresh). Nothing read here is trusted for
// authorization decisions.
package jwt
