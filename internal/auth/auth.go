// Package auth implements the VIIPER session handshake: a PBKDF2-stretched
// password, an HMAC proof of the client nonce and a ChaCha20-Poly1305 framed
// connection keyed from both nonces. The control listener speaks the same
// protocol so one client library covers both servers.
package auth

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	PBKDF2Iterations = 100000
	PBKDF2Salt       = "VIIPER-Key-v1"
	sessionContext   = "VIIPER-Session-v1"
)

// ErrUnauthorized is returned by the server side when the client proof does not match.
var ErrUnauthorized = errors.New("unauthorized: invalid password")

// DeriveKey stretches a password to a 32 byte key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}
	return pbkdf2.Key([]byte(password), []byte(PBKDF2Salt), PBKDF2Iterations, 32, sha256.New), nil
}

// DeriveSessionKey mixes the long-term key with both nonces.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}
