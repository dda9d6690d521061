package middleware

import (
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"skydrive/internal/pkg"

	"github.com/gin-gonic/gin"
)

// Recovery converts panics into 500 responses with a logged stack trace.
// Broken-pipe panics are logged and dropped without a response, the client
// is already gone.
func Recovery(logger *pkg.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if isBrokenPipe(r) {
					logger.Warn("connection broken during response", map[string]interface{}{
						"path":  c.Request.URL.Path,
						"error": r,
					})
					c.Abort()
					return
				}

				logger.Error("panic recovered", map[string]interface{}{
					"path":  c.Request.URL.Path,
					"error": r,
					"stack": string(debug.Stack()),
				})

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    pkg.ErrInternalServer.Code,
						"message": pkg.ErrInternalServer.Message,
					},
				})
			}
		}()

		c.Next()
	}
}

func isBrokenPipe(r interface{}) bool {
	ne, ok := r.(*net.OpError)
	if !ok {
		return false
	}
	se, ok := ne.Err.(*os.SyscallError)
	if !ok {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
