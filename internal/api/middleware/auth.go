package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// TokenValidator 校验 Bearer Token，返回其中的用户身份
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// Auth Token 认证中间件
// 从 Authorization: Bearer <token> 中提取 Token，以 user_token 表为准校验
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortError(c, http.StatusForbidden, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.AbortError(c, http.StatusForbidden, "Invalid authorization header")
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			status := http.StatusForbidden
			if appErr, ok := pkgerrors.As(err); ok {
				status = appErr.Status()
			}
			response.AbortError(c, status, err.Error())
			return
		}

		c.Set(jwt.ContextKey, claims)
		c.Next()
	}
}
