package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// Recovery 捕获 panic，记录堆栈并返回 500 {"errMsg": ...}
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("请求处理 panic",
					zap.String("request_id", c.GetString(requestIDKey)),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				response.AbortError(c, http.StatusInternalServerError, fmt.Sprint(r))
			}
		}()
		c.Next()
	}
}
