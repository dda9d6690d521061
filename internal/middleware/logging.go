package middleware

import (
	"time"

	"skydrive/internal/pkg"

	"github.com/gin-gonic/gin"
)

// RequestLogging logs one structured line per request
func RequestLogging(logger *pkg.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}
		if userID, exists := c.Get("user_id"); exists {
			fields["user_id"] = userID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request failed", fields)
		case c.Writer.Status() >= 400:
			logger.Warn("request rejected", fields)
		default:
			logger.Info("request", fields)
		}
	}
}
