package auth

import (
	"strings"
	"testing"

	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePKCEParams(t *testing.T) {
	testCases := []struct {
		name      string
		challenge string
		method    string
		wantErr   bool
	}{
		{name: "no pkce", challenge: "", method: "", wantErr: false},
		{name: "s256", challenge: testChallenge, method: "S256", wantErr: false},
		{name: "plain rejected", challenge: testChallenge, method: "plain", wantErr: true},
		{name: "challenge without method", challenge: testChallenge, method: "", wantErr: true},
		{name: "method without challenge", challenge: "", method: "S256", wantErr: true},
		{name: "challenge too short", challenge: "abc", method: "S256", wantErr: true},
		{name: "challenge too long", challenge: strings.Repeat("a", 129), method: "S256", wantErr: true},
		{name: "challenge with invalid characters", challenge: strings.Repeat("a", 42) + "+", method: "S256", wantErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			oerr := ValidatePKCEParams(tt.challenge, tt.method)
			if !tt.wantErr {
				assert.Nil(t, oerr)
				return
			}
			require.NotNil(t, oerr)
			assert.ErrorIs(t, oerr, oauth2errors.ErrInvalidRequest)
			assert.Equal(t, "invalid_request", oerr.Code())
		})
	}
}

func TestVerifyPKCE(t *testing.T) {
	assert.True(t, VerifyPKCE(testChallenge, "S256", testVerifier))
	assert.False(t, VerifyPKCE(testChallenge, "S256", strings.Repeat("x", 43)))
	assert.False(t, VerifyPKCE(testChallenge, "plain", testVerifier))
	assert.False(t, VerifyPKCE(testVerifier, "plain", testVerifier))
	assert.False(t, VerifyPKCE(testChallenge, "S256", "short"))
}
