package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
	"github.com/noah-isme/taller-agenda-api/pkg/response"
)

// RequireRoles lets the request through only when the caller holds one of roles.
// Per-student ownership is checked further down, once the student is loaded.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly is shorthand for RequireRoles(models.RoleAdmin).
func AdminOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
