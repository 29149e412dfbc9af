// Package pkce generates the per-flow secrets of the authorization
// code flow: the PKCE verifier/challenge pair and the state and nonce
// values. All randomness is drawn from an injectable ByteSource so
// that flows are reproducible under test.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const MethodS256 = "S256"

// DefaultByteLen is the number of random bytes drawn per secret.
const DefaultByteLen = 32

// ByteSource returns n cryptographically random bytes.
type ByteSource func(n int) []byte

// Random is the default ByteSource, backed by crypto/rand.
func Random(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)

	return b
}

// Source draws flow secrets from a ByteSource. ByteLen is used as
// given, so a zero value draws zero bytes; use NewSource for the
// defaults.
type Source struct {
	Bytes   ByteSource
	ByteLen int
}

func NewSource() Source {
	return Source{Bytes: Random, ByteLen: DefaultByteLen}
}

func (s Source) draw() []byte {
	src := s.Bytes
	if src == nil {
		src = Random
	}

	return src(s.ByteLen)
}

type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// PKCE returns a fresh verifier/challenge pair. The challenge is the
// Base64URL encoding of the SHA-256 digest of the verifier's ASCII
// bytes; only the S256 method is produced, as OAuth 2.1 forbids the
// plain method.
func (s Source) PKCE() PKCE {
	verifier := base64.RawURLEncoding.EncodeToString(s.draw())
	challengeSHA := sha256.Sum256([]byte(verifier))

	return PKCE{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(challengeSHA[:]),
		Method:    MethodS256,
	}
}

// State returns a fresh CSRF-binding value from an independent draw.
func (s Source) State() string {
	return base64.RawURLEncoding.EncodeToString(s.draw())
}

// Nonce returns a fresh ID-token binding value from an independent draw.
func (s Source) Nonce() string {
	return base64.RawURLEncoding.EncodeToString(s.draw())
}
