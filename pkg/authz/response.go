package authz

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/openkcm/oidc-rp/pkg/autherr"
)

// ExpectedResponse is the set of values the flow bound at request time,
// against which the authorization response is verified.
type ExpectedResponse struct {
	State       string
	Issuer      string
	ClientID    string
	RedirectURI string
}

// VerifyResponse validates a redirect/response URL against the bound
// request values and extracts the authorization code. Checks run in a
// fixed order and stop at the first failure; a server-reported error
// parameter takes precedence over every binding check.
func VerifyResponse(rawURL string, expected ExpectedResponse) (string, error) {
	responseURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: parsing response URL %q: %v", autherr.ErrMalformedInput, rawURL, err)
	}

	redirectURL, err := url.Parse(expected.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: parsing redirect URI %q: %v",
			autherr.ErrMalformedInput, expected.RedirectURI, err)
	}

	query := responseURL.Query()

	if query.Has("error") {
		description := "null"
		if query.Has("error_description") {
			description = query.Get("error_description")
		}

		return "", fmt.Errorf("%w: %s: %s", autherr.ErrProtocol, query.Get("error"), description)
	}

	// scheme+host+port and path must match; query and fragment are
	// ignored on both sides
	if responseURL.Scheme != redirectURL.Scheme ||
		responseURL.Host != redirectURL.Host ||
		responseURL.Path != redirectURL.Path {
		received := (&url.URL{Scheme: responseURL.Scheme, Host: responseURL.Host, Path: responseURL.Path}).String()
		wanted := (&url.URL{Scheme: redirectURL.Scheme, Host: redirectURL.Host, Path: redirectURL.Path}).String()

		return "", fmt.Errorf("%w: redirect URI mismatch: received %q, expected %q",
			autherr.ErrBindingMismatch, received, wanted)
	}

	state := query.Get("state")
	if state == "" {
		return "", fmt.Errorf("%w: response has no state parameter", autherr.ErrMissingField)
	}
	if state != expected.State {
		return "", fmt.Errorf("%w: state mismatch: received %q, expected %q",
			autherr.ErrBindingMismatch, state, expected.State)
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: response has no code parameter", autherr.ErrMissingField)
	}

	// iss is optional; when present it must match the bound issuer
	// modulo trailing slashes
	if issuer := query.Get("iss"); issuer != "" {
		if strings.TrimRight(issuer, "/") != strings.TrimRight(expected.Issuer, "/") {
			return "", fmt.Errorf("%w: issuer mismatch: received %q, expected %q",
				autherr.ErrBindingMismatch, issuer, expected.Issuer)
		}
	}

	if clientID := query.Get("client_id"); clientID != "" && clientID != expected.ClientID {
		return "", fmt.Errorf("%w: client_id mismatch: received %q, expected %q",
			autherr.ErrBindingMismatch, clientID, expected.ClientID)
	}

	return code, nil
}
