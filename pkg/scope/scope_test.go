package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/oidc-rp/pkg/autherr"
	"github.com/openkcm/oidc-rp/pkg/scope"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "single", in: "openid", want: []string{"openid"}},
		{name: "spaces", in: "openid profile email", want: []string{"openid", "profile", "email"}},
		{name: "mixed whitespace", in: "openid\tprofile\nemail", want: []string{"openid", "profile", "email"}},
		{name: "runs collapse", in: "  openid   profile  ", want: []string{"openid", "profile"}},
		{name: "empty", in: "", want: nil},
		{name: "only whitespace", in: " \t\n ", want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, scope.Tokens(tc.in))
		})
	}
}

func TestContainsOpenID(t *testing.T) {
	assert.True(t, scope.ContainsOpenID("openid"))
	assert.True(t, scope.ContainsOpenID("profile openid email"))
	assert.True(t, scope.ContainsOpenID("profile\topenid"))
	assert.False(t, scope.ContainsOpenID("profile email"))
	assert.False(t, scope.ContainsOpenID("openidconnect"))
	assert.False(t, scope.ContainsOpenID(""))
}

func TestVerifySubset(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		granted   string
		wantErr   string
	}{
		{name: "equal", requested: "openid", granted: "openid"},
		{name: "subset", requested: "openid profile email", granted: "openid email"},
		{name: "empty granted", requested: "openid", granted: ""},
		{name: "excess single", requested: "openid", granted: "openid email", wantErr: "email"},
		{name: "excess multiple keeps order", requested: "openid", granted: "email openid phone", wantErr: "email,phone"},
		{name: "excess duplicates collapse", requested: "openid", granted: "email email", wantErr: "email"},
		{name: "case sensitive", requested: "openid", granted: "OpenID", wantErr: "OpenID"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := scope.VerifySubset(tc.requested, tc.granted)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, autherr.ErrScopeViolation)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
