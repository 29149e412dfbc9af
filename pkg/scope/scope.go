// Package scope parses OAuth scope strings and enforces the
// granted-must-be-a-subset-of-requested rule on token responses.
package scope

import (
	"fmt"
	"slices"
	"strings"

	"github.com/openkcm/oidc-rp/pkg/autherr"
)

// OpenID is the scope token that switches a plain OAuth flow into an
// OpenID Connect flow.
const OpenID = "openid"

// Tokens splits a scope string into its tokens on runs of whitespace,
// discarding empty tokens.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// ContainsOpenID reports whether the scope string requests the openid
// token, at any position.
func ContainsOpenID(s string) bool {
	return slices.Contains(Tokens(s), OpenID)
}

// VerifySubset checks that every granted scope token was requested.
// Comparison is case-sensitive; duplicates collapse since only
// membership matters. An empty granted scope always passes.
func VerifySubset(requested, granted string) error {
	req := Tokens(requested)

	var excess []string
	for _, tok := range Tokens(granted) {
		if slices.Contains(req, tok) || slices.Contains(excess, tok) {
			continue
		}
		excess = append(excess, tok)
	}

	if len(excess) > 0 {
		return fmt.Errorf("%w: %s", autherr.ErrScopeViolation, strings.Join(excess, ","))
	}

	return nil
}
