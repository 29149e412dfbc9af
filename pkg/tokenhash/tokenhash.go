// Package tokenhash computes and validates the left-most-half-hash
// claims an ID Token uses to bind itself to other flow artifacts
// (s_hash for the state value, at_hash for the access token).
package tokenhash

import (
	"encoding/base64"
	"fmt"
	"hash"

	"crypto/sha256"
	"crypto/sha512"

	"github.com/openkcm/oidc-rp/pkg/autherr"
)

// newHash derives the digest from a JWS algorithm name. Names ending
// in a run of exactly three digits map to the SHA-2 family of that bit
// length; EdDSA and Ed25519 map to SHA-512. The last such run in the
// name wins.
func newHash(alg string) (hash.Hash, error) {
	switch alg {
	case "EdDSA", "Ed25519":
		return sha512.New(), nil
	}

	switch lastThreeDigitRun(alg) {
	case "256":
		return sha256.New(), nil
	case "384":
		return sha512.New384(), nil
	case "512":
		return sha512.New(), nil
	case "":
		return nil, fmt.Errorf("%w: invalid algorithm name %q", autherr.ErrHashBinding, alg)
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", autherr.ErrHashBinding, alg)
	}
}

// lastThreeDigitRun returns the last run of exactly three consecutive
// digits in s, or "" when no such run exists. Longer digit runs do not
// count: "Ed25519" has no three-digit run.
func lastThreeDigitRun(s string) string {
	run := ""
	for i := 0; i < len(s); {
		if s[i] < '0' || s[i] > '9' {
			i++
			continue
		}

		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j-i == 3 {
			run = s[i:j]
		}
		i = j
	}

	return run
}

// LeftMostHalf hashes data with the digest implied by alg and returns
// the Base64URL encoding of the first half of the digest bytes.
func LeftMostHalf(alg, data string) (string, error) {
	h, err := newHash(alg)
	if err != nil {
		return "", err
	}

	_, _ = h.Write([]byte(data))
	sum := h.Sum(nil)

	return base64.RawURLEncoding.EncodeToString(sum[:h.Size()/2]), nil
}

// Validate checks a claimed hash against the recomputed
// left-most-half-hash of data. The claim must be a non-empty exact
// match.
func Validate(alg, data, claimed string) error {
	if claimed == "" {
		return fmt.Errorf("%w: empty hash claim for %q (alg %s)", autherr.ErrHashBinding, data, alg)
	}

	expected, err := LeftMostHalf(alg, data)
	if err != nil {
		return err
	}

	if claimed != expected {
		return fmt.Errorf("%w: hash of %q (alg %s): expected %q, got %q",
			autherr.ErrHashBinding, data, alg, expected, claimed)
	}

	return nil
}
