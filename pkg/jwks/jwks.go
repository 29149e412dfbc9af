// Package jwks selects signing keys from a provider's JSON Web Key
// Set. Selection is by exact kid match with a single-key fallback when
// no kid is given; an explicit kid must match explicitly.
package jwks

import (
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"

	"github.com/openkcm/oidc-rp/pkg/autherr"
)

// SelectKey picks the signing key for a token header.
//
// A nil kid selects the only key of a singleton set and fails on any
// other set size. A non-nil kid, including the empty string, selects
// the first key whose kid equals it exactly and fails when none does,
// even in a singleton set.
func SelectKey(keys []jose.JSONWebKey, kid *string) (jose.JSONWebKey, error) {
	if kid == nil {
		if len(keys) == 1 {
			return keys[0], nil
		}

		return jose.JSONWebKey{}, fmt.Errorf("%w: ambiguous selection without kid among %d keys",
			autherr.ErrKeySelection, len(keys))
	}

	for _, key := range keys {
		if key.KeyID == *kid {
			return key, nil
		}
	}

	return jose.JSONWebKey{}, fmt.Errorf("%w: no key matches kid %q", autherr.ErrKeySelection, *kid)
}

// ParseSet decodes a JWKS document. Keys of unknown type are rejected
// by the decoder; keys missing their type-specific fields are rejected
// by the validity check.
func ParseSet(data []byte) (jose.JSONWebKeySet, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return jose.JSONWebKeySet{}, fmt.Errorf("decoding key set: %w", err)
	}

	for i, key := range set.Keys {
		if !key.Valid() {
			return jose.JSONWebKeySet{}, fmt.Errorf("%w: key %d (kid %q) is not a valid JWK",
				autherr.ErrKeySelection, i, key.KeyID)
		}
	}

	return set, nil
}
