package config

import (
	"fmt"
	"net/url"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/oidc-rp/pkg/authz"
)

// MakeClientAuth resolves the configured source references into the
// client credentials the flow uses.
func MakeClientAuth(conf ClientAuth) (authz.ClientAuth, error) {
	clientID, err := commoncfg.LoadValueFromSourceRef(conf.ClientID)
	if err != nil {
		return authz.ClientAuth{}, fmt.Errorf("loading client id: %w", err)
	}

	auth := authz.ClientAuth{
		ClientID:            string(clientID),
		ClientAssertionType: conf.ClientAssertionType,
	}

	if conf.ClientSecret != nil {
		secret, err := commoncfg.LoadValueFromSourceRef(*conf.ClientSecret)
		if err != nil {
			return authz.ClientAuth{}, fmt.Errorf("loading client secret: %w", err)
		}

		s := string(secret)
		auth.ClientSecret = &s
	}

	if conf.ClientAssertion != nil {
		assertion, err := commoncfg.LoadValueFromSourceRef(*conf.ClientAssertion)
		if err != nil {
			return authz.ClientAuth{}, fmt.Errorf("loading client assertion: %w", err)
		}

		auth.ClientAssertion = string(assertion)
	}

	return auth, nil
}

// MakeQueryValues turns the configured additional parameters into the
// url.Values form the flow appends to its requests.
func MakeQueryValues(params map[string]string) url.Values {
	if len(params) == 0 {
		return nil
	}

	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}

	return values
}
