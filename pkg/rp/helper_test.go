package rp_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/oidc-rp/pkg/discovery"
	"github.com/openkcm/oidc-rp/pkg/tokenhash"
)

const testKeyID = "test-key-1"

// oidcProvider is a minimal authorization server: it serves a discovery
// document, a JWKS and a token endpoint that issues a freshly signed ID
// token. The test drives the redirect leg itself.
type oidcProvider struct {
	server *httptest.Server
	key    *rsa.PrivateKey

	// nonce and state are set by the test before the token exchange so
	// the issued ID token binds to the flow under test.
	nonce     string
	state     string
	withSHash bool

	tokenForms []url.Values
	parForms   []url.Values
	parAuth    []string
}

func startOIDCProvider(t *testing.T) *oidcProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &oidcProvider{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(discovery.Configuration{
			Issuer:                             p.server.URL,
			AuthorizationEndpoint:              p.server.URL + "/oauth2/authorize",
			TokenEndpoint:                      p.server.URL + "/oauth2/token",
			PushedAuthorizationRequestEndpoint: p.server.URL + "/oauth2/par",
			JwksURI:                            p.server.URL + "/.well-known/jwks.json",
			IDTokenSigningAlgValuesSupported:   []string{"RS256"},
		})
	})
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{
			Keys: []jose.JSONWebKey{{Key: key.Public(), KeyID: testKeyID, Algorithm: "RS256", Use: "sig"}},
		})
	})
	mux.HandleFunc("/oauth2/par", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		p.parForms = append(p.parForms, r.PostForm)
		p.parAuth = append(p.parAuth, r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"request_uri": "urn:ietf:params:oauth:request_uri:abc123",
			"expires_in":  90,
		})
	})
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		p.tokenForms = append(p.tokenForms, r.PostForm)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "test-access-token",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "test-refresh-token",
			"scope":         "openid",
			"id_token":      p.signIDToken(t),
		})
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)

	return p
}

func (p *oidcProvider) signIDToken(t *testing.T) string {
	t.Helper()

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: p.key},
		(&jose.SignerOptions{}).WithHeader("kid", testKeyID),
	)
	require.NoError(t, err)

	now := time.Now()
	claims := map[string]any{
		"iss":   p.server.URL,
		"sub":   "user-1",
		"aud":   testClientID,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"nonce": p.nonce,
	}
	if p.withSHash {
		sHash, err := tokenhash.LeftMostHalf("RS256", p.state)
		require.NoError(t, err)
		claims["s_hash"] = sHash
	}

	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)

	return raw
}
