package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a token is not a parseable JWT.
var ErrNotJWT = errors.New("token is not a jwt")

// Hint holds the registered claims of an unverified token.
type Hint struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

var parser = jwt.NewParser()

// Inspect decodes the registered claims of token without checking its signature
// or its time claims.
func Inspect(token string) (Hint, error) {
	if token == "" {
		return Hint{}, ErrNotJWT
	}

	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Hint{}, errors.Join(ErrNotJWT, err)
	}

	h := Hint{Subject: claims.Subject, ID: claims.ID}
	if claims.IssuedAt != nil {
		h.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		h.ExpiresAt = claims.ExpiresAt.Time
	}
	return h, nil
}

// ExpiresAt returns the "exp" claim of token, if it is a JWT that carries one.
func ExpiresAt(token string) (time.Time, bool) {
	h, err := Inspect(token)
	if err != nil || h.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return h.ExpiresAt, true
}
