package middleware

import (
	"commerce-backend/internal/errors"
	"commerce-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireRole 只允许指定角色访问，须放在 AuthMiddleware 之后
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		actorID := ActorID(c)
		if actorID == nil {
			errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
			c.Abort()
			return
		}
		if role := Role(c); !allowed[role] {
			util.Logger.Warn("无权限访问",
				zap.Int64("user_id", *actorID),
				zap.String("role", role),
				zap.String("path", c.Request.URL.Path))
			errors.HandleError(c, errors.New(errors.ErrForbidden, "需要管理员权限"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminMiddleware 后台接口：管理员与店员
func AdminMiddleware() gin.HandlerFunc {
	return RequireRole(util.RoleAdmin, util.RoleStaff)
}
