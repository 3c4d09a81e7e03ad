package middleware

import (
	"net/http"
	"strings"

	"github.com/dronehub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies at maxBytes. Paths starting with one of
// except keep their own limit (the Stripe webhook reads its raw body itself).
func BodyLimit(maxBytes int64, except ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, prefix := range except {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.Fail("PAYLOAD_TOO_LARGE", "Request body is too large", c.GetString("request_id")))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
