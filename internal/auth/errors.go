package auth

import (
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
)

var (
	// ErrInvalidToken means a bearer credential was recognised but is expired,
	// revoked or otherwise unusable. It stops the resolver chain.
	ErrInvalidToken = errors.New(models.ErrInvalidToken)
	// ErrInsufficientScope means the caller is authenticated but lacks a scope.
	ErrInsufficientScope = errors.New(models.ErrInsufficientScope)

	errInvalidClientMetadata = errors.New(models.ErrInvalidClientMetadata)
	errInvalidRedirectURI    = errors.New(models.ErrInvalidRedirectURI)
)

// OAuthError is an RFC 6749 error: one of the go-oauth2 sentinels plus a
// human readable description.
type OAuthError struct {
	Err         error
	Description string
}

func newOAuthError(err error, format string, args ...any) *OAuthError {
	return &OAuthError{Err: err, Description: fmt.Sprintf(format, args...)}
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Description
}

func (e *OAuthError) Unwrap() error {
	return e.Err
}

// Code is the value of the "error" response field.
func (e *OAuthError) Code() string {
	return e.Err.Error()
}

func (e *OAuthError) Status() int {
	return models.OAuth2StatusCode(e.Code())
}

// Response renders the JSON body, falling back to the library description.
func (e *OAuthError) Response() models.OAuth2Error {
	desc := e.Description
	if desc == "" {
		desc = oauth2errors.Descriptions[e.Err]
	}
	return models.NewOAuth2Error(e.Code(), desc)
}

// asOAuthError passes OAuthErrors through and turns anything else into
// server_error.
func asOAuthError(err error) *OAuthError {
	var oerr *OAuthError
	if errors.As(err, &oerr) {
		return oerr
	}
	return &OAuthError{Err: oauth2errors.ErrServerError, Description: "The authorization server encountered an unexpected condition"}
}
