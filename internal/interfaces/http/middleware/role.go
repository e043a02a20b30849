package middleware

import (
	"net/http"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/logger"
	"github.com/agricoop/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleConfig holds configuration for role middleware
type RoleConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
}

// RequireRole creates middleware that admits actors holding any of roles.
// It must run after JWTAuthMiddleware.
func RequireRole(roles ...shared.Role) gin.HandlerFunc {
	return RequireRoleWithConfig(RoleConfig{}, roles...)
}

// RequireAdmin is RequireRole(shared.RoleAdmin)
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(shared.RoleAdmin)
}

// RequireRoleWithConfig creates role middleware with custom config
func RequireRoleWithConfig(cfg RoleConfig, roles ...shared.Role) gin.HandlerFunc {
	allowed := make(map[shared.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		log := logger.For(c.Request.Context(), cfg.Logger)
		actor := GetActor(c)
		if !actor.IsAuthenticated() {
			log.Warn("Role check without authenticated actor", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", c.GetString("request_id")))
			return
		}

		if _, ok := allowed[actor.Role]; !ok {
			log.Warn("Role denied",
				append(logger.ActorFields(actor),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)...,
			)
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Access denied: insufficient role", c.GetString("request_id")))
			return
		}

		c.Next()
	}
}
