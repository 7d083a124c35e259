// Package middleware provides the gin middleware chain of the API: panic
// recovery, tracing, access logging, error rendering and idempotency keys.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"stockcost/internal/core/apperror"
	"stockcost/pkg/logger"
)

// Recovery turns a panic into a rendered 500. The stack goes to the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				"panic", r,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)
			c.Abort()
			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", r)))
			renderError(c)
		}()
		c.Next()
	}
}
