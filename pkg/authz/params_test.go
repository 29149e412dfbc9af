package authz_test

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/oidc-rp/pkg/authz"
	"github.com/openkcm/oidc-rp/pkg/pkce"
)

// fixedSource yields a deterministic byte pattern per draw.
func fixedSource() pkce.Source {
	var calls byte
	return pkce.Source{
		ByteLen: 32,
		Bytes: func(n int) []byte {
			calls++
			b := make([]byte, n)
			for i := range b {
				b[i] = calls
			}
			return b
		},
	}
}

func TestPrepare(t *testing.T) {
	prepared := authz.Prepare(authz.Params{RedirectURI: "https://client.com/callback"}, fixedSource())

	assert.Equal(t, "code", prepared.Values.Get("response_type"))
	assert.Equal(t, "https://client.com/callback", prepared.Values.Get("redirect_uri"))
	assert.Equal(t, "openid", prepared.Values.Get("scope"), "Scope must default to openid")
	assert.Equal(t, "S256", prepared.Values.Get("code_challenge_method"))
	assert.NotEmpty(t, prepared.Values.Get("code_challenge"))
	assert.Equal(t, prepared.State, prepared.Values.Get("state"))
	assert.Equal(t, prepared.Nonce, prepared.Values.Get("nonce"))
	assert.NotEmpty(t, prepared.CodeVerifier)
	assert.NotEqual(t, prepared.CodeVerifier, prepared.Values.Get("code_challenge"))
}

func TestPrepare_Determinism(t *testing.T) {
	params := authz.Params{RedirectURI: "https://client.com/callback"}

	a := authz.Prepare(params, fixedSource())
	b := authz.Prepare(params, fixedSource())

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Prepared mismatch for identical byte sources (-a +b):\n%s", diff)
	}
}

func TestPrepare_NonceOnlyWithOpenID(t *testing.T) {
	tests := []struct {
		name      string
		scope     string
		wantNonce bool
	}{
		{name: "default scope", scope: "", wantNonce: true},
		{name: "openid alone", scope: "openid", wantNonce: true},
		{name: "openid in the middle", scope: "profile openid email", wantNonce: true},
		{name: "openid last", scope: "email openid", wantNonce: true},
		{name: "no openid", scope: "profile email", wantNonce: false},
		{name: "substring does not count", scope: "openidconnect", wantNonce: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prepared := authz.Prepare(authz.Params{
				RedirectURI: "https://client.com/callback",
				Scope:       tc.scope,
			}, fixedSource())

			if tc.wantNonce {
				assert.NotEmpty(t, prepared.Nonce)
				assert.Equal(t, prepared.Nonce, prepared.Values.Get("nonce"))
				return
			}

			assert.Empty(t, prepared.Nonce)
			assert.False(t, prepared.Values.Has("nonce"), "Nonce must be absent, not merely empty")
		})
	}
}

func TestForAuthorizationEndpoint(t *testing.T) {
	prepared := authz.Prepare(authz.Params{RedirectURI: "https://client.com/callback"}, fixedSource())

	values := authz.ForAuthorizationEndpoint(prepared, "my-client-id", url.Values{
		"prompt": {"consent"},
		"scope":  {"openid profile"}, // extras overwrite protocol keys
	})

	assert.Equal(t, "my-client-id", values.Get("client_id"))
	assert.Equal(t, "consent", values.Get("prompt"))
	assert.Equal(t, "openid profile", values.Get("scope"), "Extension parameters are last-write-wins")

	// the prepared set itself stays untouched
	assert.Equal(t, "openid", prepared.Values.Get("scope"))
	assert.False(t, prepared.Values.Has("client_id"))
}

func TestForPushedRequest(t *testing.T) {
	prepared := authz.Prepare(authz.Params{RedirectURI: "https://client.com/callback"}, fixedSource())

	secret := "s3cret"
	values, header := authz.ForPushedRequest(prepared, authz.ClientAuth{
		ClientID:     "my-client-id",
		ClientSecret: &secret,
	}, url.Values{"audience": {"https://api.example.com"}})

	require.NotEmpty(t, header.Get("Authorization"))
	assert.False(t, values.Has("client_id"), "Basic auth must keep client_id out of the body")
	assert.Equal(t, "https://api.example.com", values.Get("audience"))
	assert.Equal(t, prepared.Values.Get("code_challenge"), values.Get("code_challenge"))
}
