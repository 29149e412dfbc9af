// Package autherr defines the error taxonomy shared by all flow
// validators. Every failure is terminal for the current call; callers
// are expected to abort the flow rather than retry, since a mismatch
// is either attacker-indicative or a configuration error.
package autherr

import "errors"

var ErrMalformedInput = errors.New("malformed input")
var ErrProtocol = errors.New("authorization server returned an error")
var ErrBindingMismatch = errors.New("binding mismatch")
var ErrMissingField = errors.New("missing required field")
var ErrScopeViolation = errors.New("granted scope exceeds requested scope")
var ErrKeySelection = errors.New("key selection failed")
var ErrSignatureOrClaim = errors.New("signature or claim verification failed")
var ErrHashBinding = errors.New("hash binding validation failed")
