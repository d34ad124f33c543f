package middleware

import (
	"time"

	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 访问日志
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}
		if c.Writer.Status() >= 500 {
			log.Error("request", kv...)
			return
		}
		log.Info("request", kv...)
	}
}
