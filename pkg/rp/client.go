// Package rp orchestrates the authorization code flow for a relying
// party: it prepares the authorization (or pushed authorization)
// request, verifies the redirect response against the bound values,
// exchanges the code and validates the token response.
//
// The package holds no registry of in-flight flows. Each Flow belongs
// to its caller, who persists it across the redirect and discards it
// after completion; abandoning a flow is simply dropping the value.
package rp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oidc-rp/internal/httpjson"
	"github.com/openkcm/oidc-rp/pkg/authz"
	"github.com/openkcm/oidc-rp/pkg/discovery"
	"github.com/openkcm/oidc-rp/pkg/idtoken"
	"github.com/openkcm/oidc-rp/pkg/pkce"
)

// Config describes the relying party.
type Config struct {
	IssuerURL   string
	RedirectURI string
	Scope       string // defaults to "openid"
	ClientAuth  authz.ClientAuth

	// ExtraParamsAuthorize and ExtraParamsToken are appended to the
	// respective requests, last-write-wins.
	ExtraParamsAuthorize url.Values
	ExtraParamsToken     url.Values

	// Tolerance is the clock tolerance applied to id_token time
	// claims. Zero selects the 30s default.
	Tolerance time.Duration

	HTTPClient *http.Client
	Discovery  *discovery.Client
	Source     pkce.Source
	Validator  *idtoken.Validator
}

// Client runs authorization code flows against one provider.
type Client struct {
	cfg       Config
	http      *http.Client
	discovery *discovery.Client
	source    pkce.Source
	validator *idtoken.Validator
}

// Flow is one authorization attempt. Prepared carries the single-use
// secrets (code verifier, state, nonce); Expected carries the binding
// the response must satisfy. AuthorizationURL is where the user agent
// is sent.
type Flow struct {
	Prepared         authz.Prepared
	Expected         authz.ExpectedResponse
	AuthorizationURL string
}

func New(cfg Config) (*Client, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}
	if cfg.RedirectURI == "" {
		return nil, errors.New("redirect URI is required")
	}
	if cfg.ClientAuth.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	disco := cfg.Discovery
	if disco == nil {
		disco = discovery.NewClient(httpClient)
	}

	source := cfg.Source
	if source.Bytes == nil {
		source = pkce.NewSource()
	}

	validator := cfg.Validator
	if validator == nil {
		validator = idtoken.NewValidator()
	}

	return &Client{
		cfg:       cfg,
		http:      httpClient,
		discovery: disco,
		source:    source,
		validator: validator,
	}, nil
}

// BeginAuthorization prepares a flow whose parameters travel in the
// authorization request query string.
func (c *Client) BeginAuthorization(ctx context.Context) (*Flow, error) {
	conf, err := c.discovery.Fetch(ctx, c.cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("getting an openid config: %w", err)
	}

	prepared := c.prepare()
	values := authz.ForAuthorizationEndpoint(prepared, c.cfg.ClientAuth.ClientID, c.cfg.ExtraParamsAuthorize)

	authURL, err := mergeQuery(conf.AuthorizationEndpoint, values)
	if err != nil {
		return nil, fmt.Errorf("generating auth uri: %w", err)
	}

	slogctx.Debug(ctx, "Prepared an authorization request", "issuer", conf.CanonicalIssuer())

	return c.newFlow(conf, prepared, authURL), nil
}

// BeginPushedAuthorization prepares a flow whose parameters are pushed
// to the PAR endpoint; the returned authorization URL carries only the
// client_id and the issued request_uri.
func (c *Client) BeginPushedAuthorization(ctx context.Context) (*Flow, error) {
	conf, err := c.discovery.Fetch(ctx, c.cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("getting an openid config: %w", err)
	}
	if conf.PushedAuthorizationRequestEndpoint == "" {
		return nil, errors.New("provider does not advertise a pushed authorization request endpoint")
	}

	prepared := c.prepare()
	body, header := authz.ForPushedRequest(prepared, c.cfg.ClientAuth, c.cfg.ExtraParamsAuthorize)

	var pushed struct {
		RequestURI string `json:"request_uri"`
		ExpiresIn  int64  `json:"expires_in"`
	}
	err = httpjson.PostForm(ctx, c.http, conf.PushedAuthorizationRequestEndpoint, header, body, &pushed)
	if err != nil {
		return nil, fmt.Errorf("pushing the authorization request: %w", err)
	}
	if pushed.RequestURI == "" {
		return nil, errors.New("pushed authorization response has no request_uri")
	}

	authURL, err := mergeQuery(conf.AuthorizationEndpoint, url.Values{
		"client_id":   {c.cfg.ClientAuth.ClientID},
		"request_uri": {pushed.RequestURI},
	})
	if err != nil {
		return nil, fmt.Errorf("generating auth uri: %w", err)
	}

	slogctx.Debug(ctx, "Pushed an authorization request",
		"issuer", conf.CanonicalIssuer(), "expires_in", pushed.ExpiresIn)

	return c.newFlow(conf, prepared, authURL), nil
}

// CompleteAuthorization verifies the redirect response, exchanges the
// code and validates the token response. The flow's secrets are spent
// after this call, whatever the outcome.
func (c *Client) CompleteAuthorization(
	ctx context.Context,
	flow *Flow,
	responseURL string,
) (*idtoken.Validation, idtoken.TokenResponse, error) {
	code, err := authz.VerifyResponse(responseURL, flow.Expected)
	if err != nil {
		return nil, idtoken.TokenResponse{}, err
	}

	conf, err := c.discovery.Fetch(ctx, c.cfg.IssuerURL)
	if err != nil {
		return nil, idtoken.TokenResponse{}, fmt.Errorf("getting an openid config: %w", err)
	}

	tokens, err := c.exchangeCode(ctx, conf, code, flow.Prepared.CodeVerifier)
	if err != nil {
		return nil, idtoken.TokenResponse{}, err
	}

	slogctx.Info(ctx, "Exchanged the auth code for tokens")

	expected := idtoken.Expectation{
		Issuer:         conf.CanonicalIssuer(),
		ClientID:       c.cfg.ClientAuth.ClientID,
		Nonce:          flow.Prepared.Nonce,
		State:          flow.Prepared.State,
		RequestedScope: flow.Prepared.Scope,
		Tolerance:      c.cfg.Tolerance,
	}

	if tokens.IDToken == "" {
		validation, err := c.validator.ValidateTokenResponse(ctx, tokens, nil, expected)
		if err != nil {
			return nil, idtoken.TokenResponse{}, err
		}

		return validation, tokens, nil
	}

	keySet, err := c.discovery.FetchKeySet(ctx, conf.JwksURI)
	if err != nil {
		return nil, idtoken.TokenResponse{}, fmt.Errorf("getting jwks for a provider: %w", err)
	}

	validation, err := c.validator.ValidateTokenResponse(ctx, tokens, keySet.Keys, expected)
	if err != nil {
		return nil, idtoken.TokenResponse{}, err
	}

	return validation, tokens, nil
}

func (c *Client) prepare() authz.Prepared {
	return authz.Prepare(authz.Params{
		RedirectURI: c.cfg.RedirectURI,
		Scope:       c.cfg.Scope,
	}, c.source)
}

func (c *Client) newFlow(conf discovery.Configuration, prepared authz.Prepared, authURL string) *Flow {
	return &Flow{
		Prepared: prepared,
		Expected: authz.ExpectedResponse{
			State:       prepared.State,
			Issuer:      conf.CanonicalIssuer(),
			ClientID:    c.cfg.ClientAuth.ClientID,
			RedirectURI: c.cfg.RedirectURI,
		},
		AuthorizationURL: authURL,
	}
}

func (c *Client) exchangeCode(
	ctx context.Context,
	conf discovery.Configuration,
	code, codeVerifier string,
) (idtoken.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("code_verifier", codeVerifier)
	data.Set("redirect_uri", c.cfg.RedirectURI)

	header := http.Header{}
	c.cfg.ClientAuth.Apply(data, header)

	for key, values := range c.cfg.ExtraParamsToken {
		data[key] = append([]string(nil), values...)
	}

	var tokens idtoken.TokenResponse
	if err := httpjson.PostForm(ctx, c.http, conf.TokenEndpoint, header, data, &tokens); err != nil {
		return idtoken.TokenResponse{}, fmt.Errorf("exchanging code for tokens: %w", err)
	}

	return tokens, nil
}

// mergeQuery layers values over the query string the endpoint URL may
// already carry.
func mergeQuery(endpoint string, values url.Values) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint url: %w", err)
	}

	query := u.Query()
	for key, vs := range values {
		query[key] = append([]string(nil), vs...)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
