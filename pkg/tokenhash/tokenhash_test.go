package tokenhash_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/oidc-rp/pkg/autherr"
	"github.com/openkcm/oidc-rp/pkg/tokenhash"
)

func TestLeftMostHalf(t *testing.T) {
	tests := []struct {
		name      string
		alg       string
		wantBytes int
		wantErr   bool
	}{
		{name: "RS256", alg: "RS256", wantBytes: 16},
		{name: "ES256", alg: "ES256", wantBytes: 16},
		{name: "PS384", alg: "PS384", wantBytes: 24},
		{name: "ES512", alg: "ES512", wantBytes: 32},
		{name: "EdDSA", alg: "EdDSA", wantBytes: 32},
		{name: "Ed25519", alg: "Ed25519", wantBytes: 32},
		{name: "unsupported bit length", alg: "XX123", wantErr: true},
		{name: "no digit run", alg: "none", wantErr: true},
		{name: "longer digit run does not count", alg: "XX2566", wantErr: true},
		{name: "empty", alg: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tokenhash.LeftMostHalf(tc.alg, "some-state-value")
			if tc.wantErr {
				assert.ErrorIs(t, err, autherr.ErrHashBinding)
				return
			}

			require.NoError(t, err)

			raw, err := base64.RawURLEncoding.DecodeString(got)
			require.NoError(t, err)
			assert.Len(t, raw, tc.wantBytes, "Unexpected truncated digest size")
		})
	}
}

func TestLeftMostHalf_LastRunWins(t *testing.T) {
	// two runs of exactly three digits: the last one decides the digest
	a, err := tokenhash.LeftMostHalf("X256Y512", "data")
	require.NoError(t, err)
	b, err := tokenhash.LeftMostHalf("ES512", "data")
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestLeftMostHalf_EncodedLength(t *testing.T) {
	got, err := tokenhash.LeftMostHalf("ES256", "data")
	require.NoError(t, err)
	assert.Len(t, got, 22)

	got, err = tokenhash.LeftMostHalf("EdDSA", "data")
	require.NoError(t, err)
	assert.Len(t, got, 43)
}

func TestValidate(t *testing.T) {
	const state = "bound-state-value"

	expected, err := tokenhash.LeftMostHalf("RS256", state)
	require.NoError(t, err)

	t.Run("matching claim passes", func(t *testing.T) {
		assert.NoError(t, tokenhash.Validate("RS256", state, expected))
	})

	t.Run("empty claim fails", func(t *testing.T) {
		err := tokenhash.Validate("RS256", state, "")
		assert.ErrorIs(t, err, autherr.ErrHashBinding)
	})

	t.Run("mismatched claim quotes both values", func(t *testing.T) {
		err := tokenhash.Validate("RS256", state, "bogus")
		assert.ErrorIs(t, err, autherr.ErrHashBinding)
		assert.ErrorContains(t, err, expected)
		assert.ErrorContains(t, err, "bogus")
		assert.ErrorContains(t, err, state)
	})

	t.Run("bad algorithm fails", func(t *testing.T) {
		err := tokenhash.Validate("none", state, expected)
		assert.ErrorIs(t, err, autherr.ErrHashBinding)
	})
}
