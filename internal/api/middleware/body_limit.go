package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// BodyLimit 全局请求体大小限制
// 超限时读取 body 返回错误，由 binding 统一报 422
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.AbortError(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
