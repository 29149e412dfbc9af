// Package discovery fetches and caches OpenID Provider metadata.
// It is a collaborator of the flow core, not part of it: the core only
// consumes the endpoint URLs and the canonical issuer.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/patrickmn/go-cache"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oidc-rp/internal/httpjson"
	"github.com/openkcm/oidc-rp/pkg/autherr"
	"github.com/openkcm/oidc-rp/pkg/jwks"
)

// WellKnownPath is the OpenID Connect Discovery 1.0 endpoint path.
const WellKnownPath = "/.well-known/openid-configuration"

const defaultCacheTTL = 5 * time.Minute

// Configuration is the provider metadata document, a subset of
// https://openid.net/specs/openid-connect-discovery-1_0.html#ProviderMetadata
// plus original_issuer, which test environments set when they rewrite
// the endpoint URLs to local addresses.
type Configuration struct {
	Issuer                             string   `json:"issuer,omitempty"`
	OriginalIssuer                     string   `json:"original_issuer,omitempty"`
	AuthorizationEndpoint              string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                      string   `json:"token_endpoint,omitempty"`
	PushedAuthorizationRequestEndpoint string   `json:"pushed_authorization_request_endpoint,omitempty"`
	UserinfoEndpoint                   string   `json:"userinfo_endpoint,omitempty"`
	JwksURI                            string   `json:"jwks_uri,omitempty"`
	ResponseTypesSupported             []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported                []string `json:"grant_types_supported,omitempty"`
	SubjectTypesSupported              []string `json:"subject_types_supported,omitempty"`
	IDTokenSigningAlgValuesSupported   []string `json:"id_token_signing_alg_values_supported,omitempty"`
	ScopesSupported                    []string `json:"scopes_supported,omitempty"`
	TokenEndpointAuthMethodsSupported  []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	CodeChallengeMethodsSupported      []string `json:"code_challenge_methods_supported,omitempty"`
	ClaimsSupported                    []string `json:"claims_supported,omitempty"`
}

// CanonicalIssuer is the issuer value the flow binds to: the original
// issuer when the environment rewrote the endpoints, the advertised
// issuer otherwise.
func (c Configuration) CanonicalIssuer() string {
	if c.OriginalIssuer != "" {
		return c.OriginalIssuer
	}

	return c.Issuer
}

// Validate checks the fields every code flow needs.
func (c Configuration) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("%w: discovery document has no issuer", autherr.ErrMissingField)
	}
	if c.AuthorizationEndpoint == "" {
		return fmt.Errorf("%w: discovery document has no authorization_endpoint", autherr.ErrMissingField)
	}
	if c.TokenEndpoint == "" {
		return fmt.Errorf("%w: discovery document has no token_endpoint", autherr.ErrMissingField)
	}

	return nil
}

// Client fetches discovery documents through the shared transport,
// caching them per issuer.
type Client struct {
	HTTP  *http.Client
	Cache *cache.Cache
	TTL   time.Duration
}

func NewClient(httpClient *http.Client) *Client {
	return &Client{
		HTTP:  httpClient,
		Cache: cache.New(defaultCacheTTL, 2*defaultCacheTTL),
		TTL:   defaultCacheTTL,
	}
}

// Fetch returns the provider metadata for issuerURL, from the cache
// when a recent document exists.
func (c *Client) Fetch(ctx context.Context, issuerURL string) (Configuration, error) {
	const wkocPrefix = "wkoc_"

	cacheKey := wkocPrefix + issuerURL
	if c.Cache != nil {
		if cached, ok := c.Cache.Get(cacheKey); ok {
			//nolint:forcetypeassert
			return cached.(Configuration), nil
		}
	}

	wellKnownURL := strings.TrimRight(issuerURL, "/") + WellKnownPath

	var conf Configuration
	if err := httpjson.Get(ctx, c.HTTP, wellKnownURL, &conf); err != nil {
		return Configuration{}, fmt.Errorf("fetching openid configuration: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return Configuration{}, err
	}

	slogctx.Debug(ctx, "Fetched an openid configuration", "issuer", conf.Issuer)

	if c.Cache != nil {
		c.Cache.Set(cacheKey, conf, c.TTL)
	}

	return conf, nil
}

// FetchKeySet downloads and validates the provider's JWKS document.
func (c *Client) FetchKeySet(ctx context.Context, jwksURI string) (jose.JSONWebKeySet, error) {
	var raw json.RawMessage
	if err := httpjson.Get(ctx, c.HTTP, jwksURI, &raw); err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("fetching jwks: %w", err)
	}

	keySet, err := jwks.ParseSet(raw)
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}

	slogctx.Debug(ctx, "Fetched a provider key set", "keys", len(keySet.Keys))

	return keySet, nil
}
