// Package jwsverify is the crypto-primitive boundary of the flow: it
// verifies a compact JWS against a public key and the expected
// issuer/audience/time window, surfacing failures as typed errors so
// that callers never match on message substrings.
package jwsverify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// DefaultTolerance is the clock tolerance applied to exp/nbf checks
// when the caller does not set one.
const DefaultTolerance = 30 * time.Second

var ErrSignatureInvalid = errors.New("jws signature verification failed")
var ErrIssuerMismatch = errors.New("issuer claim mismatch")
var ErrAudienceMismatch = errors.New("audience claim mismatch")
var ErrExpired = errors.New("token is expired")
var ErrNotYetValid = errors.New("token is not valid yet")

// Expected carries the values a token must be bound to.
type Expected struct {
	Issuer    string
	Audience  string
	Tolerance time.Duration

	// Now overrides the wall clock, for tests. Zero means time.Now.
	Now time.Time
}

// Result is the verified token content.
type Result struct {
	Claims map[string]any
	Header jose.Header
}

// Verifier verifies a compact JWS with the given public key.
type Verifier interface {
	Verify(ctx context.Context, rawJWT string, key jose.JSONWebKey, exp Expected) (Result, error)
}

// Jose verifies tokens with go-jose. The zero value is ready to use.
type Jose struct {
	// Algorithms restricts the accepted signature algorithms. Empty
	// means the usual asymmetric ID-token algorithms.
	Algorithms []jose.SignatureAlgorithm
}

var defaultAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.EdDSA,
}

func (j Jose) Verify(_ context.Context, rawJWT string, key jose.JSONWebKey, exp Expected) (Result, error) {
	algs := j.Algorithms
	if len(algs) == 0 {
		algs = defaultAlgorithms
	}

	token, err := jwt.ParseSigned(rawJWT, algs)
	if err != nil {
		return Result{}, fmt.Errorf("parsing jwt: %w", err)
	}

	var claims jwt.Claims
	var payload map[string]any
	if err := token.Claims(key, &claims, &payload); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	tolerance := exp.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	now := exp.Now
	if now.IsZero() {
		now = time.Now()
	}

	err = claims.ValidateWithLeeway(jwt.Expected{
		Issuer:      exp.Issuer,
		AnyAudience: jwt.Audience{exp.Audience},
		Time:        now,
	}, tolerance)
	if err != nil {
		return Result{}, mapClaimError(err, claims, exp, now)
	}

	return Result{Claims: payload, Header: token.Headers[0]}, nil
}

// mapClaimError translates go-jose claim failures into this package's
// typed errors, carrying the expected and actual values. Unrecognized
// failures propagate unchanged.
func mapClaimError(err error, claims jwt.Claims, exp Expected, now time.Time) error {
	switch {
	case errors.Is(err, jwt.ErrInvalidIssuer):
		return fmt.Errorf("%w: expected %q, got %q", ErrIssuerMismatch, exp.Issuer, claims.Issuer)
	case errors.Is(err, jwt.ErrInvalidAudience):
		return fmt.Errorf("%w: expected %q, got %q",
			ErrAudienceMismatch, exp.Audience, strings.Join(claims.Audience, ","))
	case errors.Is(err, jwt.ErrExpired):
		return fmt.Errorf("%w: exp %v is before %v", ErrExpired, claims.Expiry.Time(), now)
	case errors.Is(err, jwt.ErrNotValidYet):
		return fmt.Errorf("%w: nbf %v is after %v", ErrNotYetValid, claims.NotBefore.Time(), now)
	}

	return err
}
