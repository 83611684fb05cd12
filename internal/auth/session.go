package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookieName holds the signed login session of the consent UI.
	SessionCookieName = "doxyde_session"
	// SessionAudience marks JWTs that are login sessions.
	SessionAudience = "session"
	csrfAudience    = "csrf"

	csrfTTL = 15 * time.Minute
)

// SessionSigner issues the signed JWTs behind the login cookie and the CSRF
// tokens embedded in the consent form.
type SessionSigner struct {
	SignedKey    []byte
	SignedMethod jwt.SigningMethod
	TTL          time.Duration
	now          func() time.Time
}

func NewSessionSigner(key []byte, ttl time.Duration) *SessionSigner {
	return &SessionSigner{
		SignedKey:    key,
		SignedMethod: jwt.SigningMethodHS256,
		TTL:          ttl,
		now:          time.Now,
	}
}

// Issue signs a session for user. The claims follow the uid/role layout the
// session middleware expects.
func (g *SessionSigner) Issue(user *models.User) (string, error) {
	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	now := g.now()
	claims := jwt.MapClaims{
		"uid":  strconv.FormatUint(uint64(user.ID), 10),
		"role": role,
		"aud":  SessionAudience,
		"iat":  now.Unix(),
		"exp":  now.Add(g.TTL).Unix(),
	}
	return jwt.NewWithClaims(g.SignedMethod, claims).SignedString(g.SignedKey)
}

// IssueCSRF binds a consent form to the logged in user and the client being
// authorized.
func (g *SessionSigner) IssueCSRF(userID uint, clientID string) (string, error) {
	now := g.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Audience:  jwt.ClaimStrings{csrfAudience},
		ID:        clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(csrfTTL)),
	}
	return jwt.NewWithClaims(g.SignedMethod, claims).SignedString(g.SignedKey)
}

func (g *SessionSigner) VerifyCSRF(token string, userID uint, clientID string) bool {
	if token == "" {
		return false
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.SignedKey, nil
	}, jwt.WithAudience(csrfAudience), jwt.WithTimeFunc(g.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return false
	}
	return claims.Subject == strconv.FormatUint(uint64(userID), 10) && claims.ID == clientID
}
