package authz

import (
	"encoding/base64"
	"net/http"
	"net/url"
)

// ClientAuth selects how the client authenticates against the token
// and PAR endpoints. A nil ClientSecret means "no secret configured";
// a pointer to the empty string still selects Basic auth with an empty
// password — the distinction is deliberate and must not collapse.
type ClientAuth struct {
	ClientID            string
	ClientSecret        *string
	ClientAssertion     string
	ClientAssertionType string
}

// Apply mutates the outgoing parameter set and header map with exactly
// one authentication strategy:
//
//  1. With a secret (even empty): HTTP Basic credentials; nothing
//     identity-related goes into the body.
//  2. Otherwise: client_id in the body, plus the assertion fields when
//     they are non-empty strings.
//
// Malformed inputs never raise an error; the optional fields are
// simply left out.
func (a ClientAuth) Apply(values url.Values, header http.Header) {
	if a.ClientSecret != nil {
		credentials := base64.StdEncoding.EncodeToString([]byte(a.ClientID + ":" + *a.ClientSecret))
		header.Set("Authorization", "Basic "+credentials)

		return
	}

	values.Set("client_id", a.ClientID)

	if a.ClientAssertion == "" {
		return
	}
	values.Set("client_assertion", a.ClientAssertion)

	if a.ClientAssertionType != "" {
		values.Set("client_assertion_type", a.ClientAssertionType)
	}
}
