package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// AccessLog 访问日志中间件
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Infof(c.Request.Context(), "%s %s status=%d latency=%s",
			c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
