// Package idtoken validates ID Tokens and token endpoint responses
// against the values a flow was bound to: issuer, client, nonce and
// state. Signature and time-window checks are delegated to the
// jwsverify crypto boundary.
package idtoken

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/openkcm/oidc-rp/pkg/autherr"
	"github.com/openkcm/oidc-rp/pkg/jwks"
	"github.com/openkcm/oidc-rp/pkg/jwsverify"
	"github.com/openkcm/oidc-rp/pkg/scope"
	"github.com/openkcm/oidc-rp/pkg/tokenhash"
)

// TokenResponse is the token endpoint response. Raw keeps every field
// of the document, including extensions the named fields do not cover.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	Raw map[string]any `json:"-"`
}

func (t *TokenResponse) UnmarshalJSON(data []byte) error {
	type plain TokenResponse

	var parsed plain
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}

	*t = TokenResponse(parsed)

	return json.Unmarshal(data, &t.Raw)
}

// Expectation binds a validation call to its originating request.
type Expectation struct {
	Issuer         string
	ClientID       string
	Nonce          string
	State          string
	RequestedScope string

	// Tolerance is the exp/nbf clock tolerance. Zero selects
	// jwsverify.DefaultTolerance.
	Tolerance time.Duration
}

// Validation is the outcome of a successful ID-token validation. It is
// produced once per token and not retained by this package.
type Validation struct {
	Payload map[string]any
	Header  jose.Header
}

// Validator validates ID tokens. The zero value delegates to the
// go-jose backed verifier.
type Validator struct {
	Verifier jwsverify.Verifier
}

func NewValidator() *Validator {
	return &Validator{Verifier: jwsverify.Jose{}}
}

type rawHeader struct {
	Alg string  `json:"alg"`
	Kid *string `json:"kid"`
}

// decodeHeader reads the protected header without verifying anything;
// the kid/alg are needed to pick the verification key.
func decodeHeader(rawJWT string) (rawHeader, error) {
	parts := strings.Split(rawJWT, ".")
	if len(parts) != 3 {
		return rawHeader{}, fmt.Errorf("expected 3 parts, got %d", len(parts))
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return rawHeader{}, fmt.Errorf("decoding protected header: %w", err)
	}

	var header rawHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return rawHeader{}, fmt.Errorf("parsing protected header: %w", err)
	}

	return header, nil
}

// ValidateIDToken runs the full validation chain on a compact JWS:
// key selection by kid, delegated signature/issuer/audience/time
// verification, required-claim checks, nonce binding and the optional
// s_hash state binding.
func (v *Validator) ValidateIDToken(
	ctx context.Context,
	rawJWT string,
	keys []jose.JSONWebKey,
	expected Expectation,
) (*Validation, error) {
	header, err := decodeHeader(rawJWT)
	if err != nil {
		return nil, fmt.Errorf("%w: id_token: %v", autherr.ErrMalformedInput, err)
	}
	if header.Alg == "" {
		return nil, fmt.Errorf("%w: id_token header has no alg", autherr.ErrMissingField)
	}

	key, err := jwks.SelectKey(keys, header.Kid)
	if err != nil {
		return nil, err
	}

	verifier := v.Verifier
	if verifier == nil {
		verifier = jwsverify.Jose{}
	}

	result, err := verifier.Verify(ctx, rawJWT, key, jwsverify.Expected{
		Issuer:    expected.Issuer,
		Audience:  expected.ClientID,
		Tolerance: expected.Tolerance,
	})
	if err != nil {
		return nil, wrapVerifyError(err)
	}

	claims := result.Claims

	if _, ok := claims["iat"]; !ok {
		return nil, fmt.Errorf("%w: id_token has no iat claim", autherr.ErrMissingField)
	}
	if _, ok := claims["sub"]; !ok {
		return nil, fmt.Errorf("%w: id_token has no sub claim", autherr.ErrMissingField)
	}

	rawNonce, ok := claims["nonce"]
	if !ok {
		return nil, fmt.Errorf("%w: id_token has no nonce claim", autherr.ErrMissingField)
	}
	nonce, _ := rawNonce.(string)
	if nonce != expected.Nonce {
		return nil, fmt.Errorf("%w: nonce mismatch: received %q, expected %q",
			autherr.ErrBindingMismatch, nonce, expected.Nonce)
	}

	if rawStateHash, ok := claims["s_hash"]; ok {
		claimed, _ := rawStateHash.(string)
		if err := tokenhash.Validate(result.Header.Algorithm, expected.State, claimed); err != nil {
			return nil, err
		}
	}

	return &Validation{Payload: claims, Header: result.Header}, nil
}

// wrapVerifyError lifts typed crypto-boundary failures into the flow
// error taxonomy; anything the boundary did not classify propagates
// unchanged.
func wrapVerifyError(err error) error {
	switch {
	case errors.Is(err, jwsverify.ErrSignatureInvalid),
		errors.Is(err, jwsverify.ErrIssuerMismatch),
		errors.Is(err, jwsverify.ErrAudienceMismatch),
		errors.Is(err, jwsverify.ErrExpired),
		errors.Is(err, jwsverify.ErrNotYetValid):
		return fmt.Errorf("%w: %v", autherr.ErrSignatureOrClaim, err)
	}

	return err
}

// ValidateTokenResponse checks the granted scope against the requested
// one and, when an ID token is present, validates it. A response
// without an ID token yields a nil Validation and no error: ID tokens
// are optional for pure OAuth flows.
func (v *Validator) ValidateTokenResponse(
	ctx context.Context,
	response TokenResponse,
	keys []jose.JSONWebKey,
	expected Expectation,
) (*Validation, error) {
	if response.Scope != "" {
		if err := scope.VerifySubset(expected.RequestedScope, response.Scope); err != nil {
			return nil, err
		}
	}

	if response.IDToken == "" {
		return nil, nil
	}

	return v.ValidateIDToken(ctx, response.IDToken, keys, expected)
}
