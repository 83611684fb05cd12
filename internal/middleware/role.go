package middleware

import (
	"net/http"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/gin-gonic/gin"
)

// RequireRole is a middleware that checks if the user has the required role.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Set by SessionAuth
		userID, exists := c.Get(ContextUserID)
		if !exists {
			c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "User not authenticated"))
			c.Abort()
			return
		}

		role, exists := c.Get(ContextUserRole)
		if !exists {
			c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "User role not found in session"))
			c.Abort()
			return
		}

		userRole, ok := role.(string)
		if !ok {
			c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "Invalid role format"))
			c.Abort()
			return
		}

		if userRole != requiredRole {
			c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "Insufficient permissions", map[string]interface{}{
				"required_role": requiredRole,
				"user_role":     userRole,
				"user_id":       userID,
			}))
			c.Abort()
			return
		}

		c.Next()
	}
}
