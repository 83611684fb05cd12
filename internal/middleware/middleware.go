package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Keys set on the gin context by this package.
const (
	ContextUserID    = "userID"
	ContextUserRole  = "userRole"
	ContextPrincipal = "principal"
)

var errNoSession = errors.New("no login session")

// SessionAuth requires the signed login cookie issued by the login page.
// The user's id and role are stored on the context.
func SessionAuth(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := loadSession(c, jwtSecret); err != nil {
			c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "A valid login session is required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalSession loads the login session when there is one. Handlers that
// redirect anonymous users to the login page sit behind it.
func OptionalSession(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := loadSession(c, jwtSecret); err != nil && !errors.Is(err, errNoSession) {
			log.WithError(err).Debug("Ignoring invalid session cookie")
		}
		c.Next()
	}
}

func loadSession(c *gin.Context, jwtSecret []byte) error {
	cookie, err := c.Cookie(auth.SessionCookieName)
	if err != nil || cookie == "" {
		return errNoSession
	}
	claims, err := parseAndValidateJWT(cookie, jwtSecret)
	if err != nil {
		return err
	}
	return extractAndSetClaims(c, claims)
}

// respondWithOAuth2Error responds with RFC 6750 compliant error format
func respondWithOAuth2Error(c *gin.Context, status int, errorCode, description string) {
	c.JSON(status, models.NewOAuth2Error(errorCode, description))
	c.Abort()
}

// parseJWTToken validates and parses a session JWT using HMAC signing method
func parseJWTToken(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC so the secret cannot be used as a public key
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v. Expected HMAC", token.Header["alg"])
		}
		return jwtSecret, nil
	}, jwt.WithAudience(auth.SessionAudience), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}

	return claims, nil
}

// parseAndValidateJWT parses the JWT and performs strict validation
func parseAndValidateJWT(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	claims, err := parseJWTToken(tokenString, jwtSecret)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Validate issued at (iat claim) - prevents using tokens issued in the future
	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("invalid iat claim: %w", err)
	}
	if iat != nil && iat.After(now.Add(time.Minute)) {
		return nil, fmt.Errorf("token issued in the future")
	}

	return claims, nil
}

// extractAndSetClaims copies the user id and role of a session into the
// gin context
func extractAndSetClaims(c *gin.Context, claims jwt.MapClaims) error {
	userID, err := extractUserID(claims)
	if err != nil {
		return err
	}
	if userID == 0 {
		return fmt.Errorf("invalid user identifier: cannot be zero")
	}

	role, err := extractRole(claims)
	if err != nil {
		return err
	}

	c.Set(ContextUserID, userID)
	c.Set(ContextUserRole, role)
	return nil
}

// extractUserID reads the "uid" claim, as a numeric string or a number
func extractUserID(claims jwt.MapClaims) (uint, error) {
	if uid, ok := claims["uid"].(string); ok && uid != "" {
		parsedID, err := strconv.ParseUint(uid, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid uid claim format: must be a numeric string, got: %s", uid)
		}
		return uint(parsedID), nil
	}

	// JSON numbers are parsed as float64
	if uid, ok := claims["uid"].(float64); ok {
		if uid <= 0 {
			return 0, fmt.Errorf("invalid uid claim: must be positive, got: %f", uid)
		}
		return uint(uid), nil
	}

	return 0, fmt.Errorf("token missing required 'uid' claim")
}

// extractRole extracts and validates the role from JWT claims
// All sessions must have an explicit role claim - no defaults are provided
func extractRole(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", fmt.Errorf("token missing required 'role' claim")
	}

	allowedRoles := map[string]bool{
		models.RoleAdmin: true,
		models.RoleUser:  true,
	}

	if !allowedRoles[role] {
		return "", fmt.Errorf("invalid role '%s'. Allowed roles: %s, %s", role, models.RoleAdmin, models.RoleUser)
	}

	return role, nil
}
