package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleAdmin is the role claim of shop staff
const RoleAdmin = "ADMIN"

// RoleConfig holds configuration for the role guard
type RoleConfig struct {
	Logger *zap.Logger
}

// RequireAdmin only lets administrators through. Place it after JWTAuthMiddleware.
func RequireAdmin(log *zap.Logger) gin.HandlerFunc {
	return RequireRoleWithConfig(RoleConfig{Logger: log}, RoleAdmin)
}

// RequireRole lets through callers holding one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return RequireRoleWithConfig(RoleConfig{}, roles...)
}

// RequireRoleWithConfig answers 401 without claims and 403 for any other role
func RequireRoleWithConfig(cfg RoleConfig, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "UNAUTHORIZED",
					"message":    "Authentication required",
					"request_id": c.GetString("request_id"),
				},
			})
			return
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}

		if cfg.Logger != nil {
			cfg.Logger.Warn("Role check failed",
				zap.String("user_id", claims.UserID),
				zap.String("role", claims.Role),
				zap.Strings("required_any", roles),
				zap.String("path", c.Request.URL.Path),
			)
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":       "FORBIDDEN",
				"message":    "You do not have access to this resource",
				"request_id": c.GetString("request_id"),
			},
		})
	}
}
