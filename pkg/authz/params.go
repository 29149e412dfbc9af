// Package authz builds the parameter sets of authorization and pushed
// authorization requests and verifies the authorization response
// against the values the request was bound to.
package authz

import (
	"net/http"
	"net/url"

	"github.com/openkcm/oidc-rp/pkg/pkce"
	"github.com/openkcm/oidc-rp/pkg/scope"
)

const DefaultScope = "openid"
const DefaultResponseType = "code"

// Params is the caller-facing description of an authorization attempt.
type Params struct {
	RedirectURI  string
	Scope        string // defaults to "openid"
	ResponseType string // defaults to "code"
}

// Prepared is a single authorization attempt. CodeVerifier and State
// are single-use secrets: the caller retains them until response
// verification and token exchange, then discards them. Nonce is empty
// iff the scope does not request openid, in which case it is absent
// from Values too.
type Prepared struct {
	Values       url.Values
	CodeVerifier string
	State        string
	Scope        string
	Nonce        string
}

// Prepare draws fresh flow secrets from src and assembles the
// protocol-mandated parameters of an authorization request.
func Prepare(p Params, src pkce.Source) Prepared {
	sc := p.Scope
	if sc == "" {
		sc = DefaultScope
	}
	responseType := p.ResponseType
	if responseType == "" {
		responseType = DefaultResponseType
	}

	challenge := src.PKCE()
	state := src.State()

	values := url.Values{}
	values.Set("response_type", responseType)
	values.Set("redirect_uri", p.RedirectURI)
	values.Set("scope", sc)
	values.Set("state", state)
	values.Set("code_challenge", challenge.Challenge)
	values.Set("code_challenge_method", challenge.Method)

	prepared := Prepared{
		Values:       values,
		CodeVerifier: challenge.Verifier,
		State:        state,
		Scope:        sc,
	}

	if scope.ContainsOpenID(sc) {
		prepared.Nonce = src.Nonce()
		values.Set("nonce", prepared.Nonce)
	}

	return prepared
}

// ForAuthorizationEndpoint layers the client identity and any
// caller-supplied extension parameters over the prepared set. Extras
// are applied last and overwrite protocol-mandated keys.
func ForAuthorizationEndpoint(prepared Prepared, clientID string, extra url.Values) url.Values {
	values := clone(prepared.Values)
	values.Set("client_id", clientID)
	overlay(values, extra)

	return values
}

// ForPushedRequest layers client authentication and extension
// parameters over the prepared set for submission to the pushed
// authorization request endpoint.
func ForPushedRequest(prepared Prepared, auth ClientAuth, extra url.Values) (url.Values, http.Header) {
	values := clone(prepared.Values)
	header := http.Header{}
	auth.Apply(values, header)
	overlay(values, extra)

	return values, header
}

func clone(values url.Values) url.Values {
	out := url.Values{}
	for k, vs := range values {
		out[k] = append([]string(nil), vs...)
	}

	return out
}

// overlay applies extras with last-write-wins semantics.
func overlay(values, extra url.Values) {
	for k, vs := range extra {
		values[k] = append([]string(nil), vs...)
	}
}
