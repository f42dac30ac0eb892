package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the response header carrying the per-request identifier.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key under which the identifier is stored.
const requestIDKey = "request_id"

// RequestID assigns every request a UUID, echoes it in the response headers
// and stores it in the gin context for log correlation. An identifier already
// present on the incoming request is reused so upstream proxies can trace
// through.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the identifier assigned by RequestID, or "" when the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
