package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/logger"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RequirePermission aborts with 403 unless the authenticated actor holds
// permission. Services check permissions again; this rejects early and
// keeps the route table readable.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission passes when the actor holds at least one permission
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", c.GetString(logger.GinRequestIDKey)))
			return
		}
		for _, p := range permissions {
			if actor.HasPermission(p) {
				c.Next()
				return
			}
		}

		logger.GetGinLogger(c).Warn("Permission denied",
			zap.Strings("required_any", permissions),
			zap.Strings("actor_permissions", actor.Permissions),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Access denied: insufficient permissions", c.GetString(logger.GinRequestIDKey)))
	}
}
