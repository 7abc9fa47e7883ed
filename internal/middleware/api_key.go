package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
)

// RequireAPIKey rejects requests that do not carry the public API key in the
// apikey header. An empty key disables the check.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		got := c.GetHeader(constants.APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			apierrors.Unauthorized(c, "Invalid API key")
			c.Abort()
			return
		}
		c.Next()
	}
}
