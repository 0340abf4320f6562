package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, exp time.Time) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "device",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestVerifyValidToken(t *testing.T) {
	secret := []byte("alert-secret")
	v := NewVerifier(secret)

	token := signToken(t, secret, time.Now().Add(time.Hour))
	assert.NoError(t, v.Verify(token))
}

func TestVerifyMissingCredential(t *testing.T) {
	v := NewVerifier([]byte("alert-secret"))
	assert.Equal(t, ErrNoCredential, v.Verify(""))
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier([]byte("alert-secret"))

	token := signToken(t, []byte("other-secret"), time.Now().Add(time.Hour))
	assert.Equal(t, ErrInvalidCredential, v.Verify(token))
}

func TestVerifyExpiredToken(t *testing.T) {
	secret := []byte("alert-secret")
	v := NewVerifier(secret)

	token := signToken(t, secret, time.Now().Add(-time.Hour))
	assert.Equal(t, ErrInvalidCredential, v.Verify(token))
}

func TestVerifyGarbageToken(t *testing.T) {
	v := NewVerifier([]byte("alert-secret"))
	assert.Equal(t, ErrInvalidCredential, v.Verify("not-a-jwt"))
}
