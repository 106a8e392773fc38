package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	resp "portfolio-accounts/internal/transport/http/response"
)

// MaxBodyBytes caps request bodies. A handler that hits the cap, records the
// error on the context and writes nothing gets a 413 envelope.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var mbe *http.MaxBytesError
			if errors.As(e.Err, &mbe) {
				c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooLarge, "request body too large"))
				return
			}
		}
	}
}
