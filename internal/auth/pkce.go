package auth

import (
	"regexp"

	"github.com/go-oauth2/oauth2/v4"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
)

// RFC 7636 section 4.1: 43 to 128 unreserved characters.
var pkcePattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

// ValidatePKCEParams checks the challenge parameters of an authorization
// request. Only S256 is accepted; omitting both parameters is allowed here
// and enforced for public clients by the caller.
func ValidatePKCEParams(challenge, method string) *OAuthError {
	switch {
	case challenge == "" && method == "":
		return nil
	case challenge == "":
		return newOAuthError(oauth2errors.ErrInvalidRequest, "code_challenge is required when code_challenge_method is set")
	case method == "":
		return newOAuthError(oauth2errors.ErrInvalidRequest, "code_challenge_method is required; only S256 is supported")
	case oauth2.CodeChallengeMethod(method) != oauth2.CodeChallengeS256:
		return newOAuthError(oauth2errors.ErrInvalidRequest, "unsupported code_challenge_method %q; only S256 is supported", method)
	case !pkcePattern.MatchString(challenge):
		return newOAuthError(oauth2errors.ErrInvalidRequest, "malformed code_challenge")
	}
	return nil
}

// VerifyPKCE checks a code_verifier against the stored S256 challenge.
func VerifyPKCE(challenge, method, verifier string) bool {
	if oauth2.CodeChallengeMethod(method) != oauth2.CodeChallengeS256 {
		return false
	}
	if !pkcePattern.MatchString(verifier) {
		return false
	}
	return oauth2.CodeChallengeS256.Validate(challenge, verifier)
}
