// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	RelyingParty RelyingParty `yaml:"relyingParty"`
}

type RelyingParty struct {
	IssuerURL   string `yaml:"issuerURL"`
	RedirectURI string `yaml:"redirectURI" default:"http://localhost:8080/callback"`
	Scope       string `yaml:"scope" default:"openid"`

	ClientAuth ClientAuth `yaml:"clientAuth"`

	UsePushedAuthorization bool `yaml:"usePushedAuthorization"`

	AdditionalQueryParametersAuthorize map[string]string `yaml:"additionalQueryParametersAuthorize"`
	AdditionalQueryParametersToken     map[string]string `yaml:"additionalQueryParametersToken"`

	Tolerance      time.Duration `yaml:"tolerance" default:"30s"`
	RequestTimeout time.Duration `yaml:"requestTimeout" default:"10s"`
}

// ClientAuth configures how the relying party authenticates at the
// token and pushed authorization endpoints. A nil ClientSecret means
// the client has no secret; a present one switches to HTTP Basic even
// when its resolved value is empty.
type ClientAuth struct {
	ClientID            commoncfg.SourceRef  `yaml:"clientID"`
	ClientSecret        *commoncfg.SourceRef `yaml:"clientSecret"`
	ClientAssertion     *commoncfg.SourceRef `yaml:"clientAssertion"`
	ClientAssertionType string               `yaml:"clientAssertionType"`
}
