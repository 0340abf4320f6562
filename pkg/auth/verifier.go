// Package auth implements the authentication gate for incoming realtime
// connections. It only verifies tokens; issuing them belongs to the token
// authority, not to this service.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoCredential is returned when no token was presented at all.
	ErrNoCredential = errors.New("no credential presented")

	// ErrInvalidCredential is returned when a token was presented but is
	// malformed, expired or signed with the wrong key.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Verifier validates connection tokens against a shared HMAC secret. The
// token's claims are not otherwise consulted: a valid signature admits the
// connection into the registration phase, nothing more.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for the given shared secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the raw token string extracted from the connection
// handshake. It distinguishes a missing credential from an invalid one so
// the transport can answer with distinct closure codes.
func (v *Verifier) Verify(token string) error {
	if token == "" {
		return ErrNoCredential
	}

	_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return ErrInvalidCredential
	}

	return nil
}
