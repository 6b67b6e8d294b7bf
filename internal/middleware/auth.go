package middleware

import (
	"commerce-backend/internal/errors"
	"commerce-backend/internal/util"
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	actorIDKey = "actor_id"
	roleKey    = "role"
)

const requestTimeout = 10 * time.Second

// AuthMiddleware 校验 Bearer 令牌，缺失或无效时直接返回 401
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c.GetHeader("Authorization"))
		if err != nil {
			util.Logger.Info("认证失败",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err))
			errors.HandleError(c, err)
			c.Abort()
			return
		}
		withDeadline(c, claims)
	}
}

// OptionalAuthMiddleware 有令牌时解析身份，无令牌按访客处理；令牌无效仍返回 401
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			withDeadline(c, nil)
			return
		}
		claims, err := parseBearer(c.GetHeader("Authorization"))
		if err != nil {
			errors.HandleError(c, err)
			c.Abort()
			return
		}
		withDeadline(c, claims)
	}
}

func parseBearer(header string) (*util.Claims, error) {
	if header == "" {
		return nil, errors.New(errors.ErrUnauthorized, "需要认证")
	}
	parts := strings.SplitN(header, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return nil, errors.New(errors.ErrUnauthorized, "无效的认证格式")
	}
	claims, err := util.ValidateToken(parts[1])
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidToken, "无效或过期的令牌", err)
	}
	return claims, nil
}

func withDeadline(c *gin.Context, claims *util.Claims) {
	if claims != nil {
		c.Set(actorIDKey, claims.UserID)
		c.Set(roleKey, claims.Role)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}

// ActorID 返回当前请求的用户ID，访客返回 nil
func ActorID(c *gin.Context) *int64 {
	v, ok := c.Get(actorIDKey)
	if !ok {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}

// Role 返回当前请求的角色
func Role(c *gin.Context) string {
	return c.GetString(roleKey)
}
