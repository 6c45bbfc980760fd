package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hieplh/ata-sample-webapp/pkg/metrics"
)

// Metrics 记录请求数与耗时，route 取路由模板避免路径参数撑爆标签
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
